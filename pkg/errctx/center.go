package errctx

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// ErrCenter keeps the first error reported by any user sharing it and
// cancels every context derived from it once that error arrives.
type ErrCenter struct {
	hasErr atomic.Bool
	errVal atomic.Error

	mu      sync.Mutex
	nextID  uint64
	cancels map[uint64]context.CancelFunc
}

func NewErrCenter() *ErrCenter {
	return &ErrCenter{
		cancels: make(map[uint64]context.CancelFunc),
	}
}

// OnError records err. Only the first non-nil error is kept.
func (c *ErrCenter) OnError(err error) {
	if err == nil {
		return
	}
	if c.hasErr.Swap(true) {
		return
	}
	c.errVal.Store(err)

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, cancel := range c.cancels {
		cancel()
		delete(c.cancels, id)
	}
}

// CheckError returns the recorded error, if any.
func (c *ErrCenter) CheckError() error {
	return c.errVal.Load()
}

// DeriveContext returns a child of ctx that is canceled when an error is
// recorded. The returned cancel func must be called to release it.
func (c *ErrCenter) DeriveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	derived, cancel := context.WithCancel(ctx)
	if c.hasErr.Load() {
		cancel()
		return derived, cancel
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.cancels[id] = cancel
	c.mu.Unlock()

	// OnError may have run between the check above and the registration
	if c.hasErr.Load() {
		cancel()
	}
	return derived, func() {
		c.mu.Lock()
		delete(c.cancels, id)
		c.mu.Unlock()
		cancel()
	}
}
