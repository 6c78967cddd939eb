package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/pingcap/errors"

	"github.com/hanfei1991/distddl/model"
)

type fakeDialer struct {
	mu sync.Mutex
	// executed commands by worker address, BEGIN/COMMIT/ROLLBACK included
	executed map[string][]string
	dials    map[string]int
	closed   map[string]int
	// failOn makes a worker fail commands containing the substring
	failOn   map[string]string
	dialFail map[string]bool
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		executed: make(map[string][]string),
		dials:    make(map[string]int),
		closed:   make(map[string]int),
		failOn:   make(map[string]string),
		dialFail: make(map[string]bool),
	}
}

func (d *fakeDialer) Dial(_ context.Context, node model.WorkerNode) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[node.Addr()]++
	if d.dialFail[node.Addr()] {
		return nil, errors.New("connection refused")
	}
	return &fakeConn{d: d, addr: node.Addr()}, nil
}

func (d *fakeDialer) commands(addr string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.executed[addr]...)
}

type fakeConn struct {
	d    *fakeDialer
	addr string
}

func (c *fakeConn) Exec(_ context.Context, sql string) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if sub, ok := c.d.failOn[c.addr]; ok && strings.Contains(sql, sub) {
		return errors.Errorf("fake failure on %s", sql)
	}
	c.d.executed[c.addr] = append(c.d.executed[c.addr], sql)
	return nil
}

func (c *fakeConn) Close(context.Context) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.closed[c.addr]++
	return nil
}
