package autoid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectIDAllocator(t *testing.T) {
	t.Parallel()

	a := NewObjectIDAllocator()
	require.Equal(t, uint32(FirstNormalObjectID), a.AllocID())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[uint32]struct{})
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := a.AllocID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, ids, 1000)
}

func TestUUIDAllocator(t *testing.T) {
	t.Parallel()

	a := NewUUIDAllocator()
	require.NotEqual(t, a.AllocID(), a.AllocID())
}
