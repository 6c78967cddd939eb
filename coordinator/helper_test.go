package coordinator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/catalog"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/promutil"
	"github.com/hanfei1991/distddl/pkg/transport"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

type recordingDialer struct {
	mu       sync.Mutex
	executed map[string][]string
	failOn   map[string]string
}

func newRecordingDialer() *recordingDialer {
	return &recordingDialer{
		executed: make(map[string][]string),
		failOn:   make(map[string]string),
	}
}

func (d *recordingDialer) Dial(_ context.Context, node model.WorkerNode) (transport.Conn, error) {
	return &recordingConn{d: d, addr: node.Addr()}, nil
}

func (d *recordingDialer) commands(addr string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.executed[addr]...)
}

type recordingConn struct {
	d    *recordingDialer
	addr string
}

func (c *recordingConn) Exec(_ context.Context, sql string) error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if sub, ok := c.d.failOn[c.addr]; ok && strings.Contains(sql, sub) {
		return errors.Errorf("worker rejected %s", sql)
	}
	c.d.executed[c.addr] = append(c.d.executed[c.addr], sql)
	return nil
}

func (c *recordingConn) Close(context.Context) error { return nil }

type testEnv struct {
	coord   *Coordinator
	meta    *meta.MetaOpsClient
	cat     *catalog.MemCatalog
	dialer  *recordingDialer
	workers []model.WorkerNode
}

func newTestOptions() Options {
	return Options{
		Role:     model.RoleCoordinator,
		Settings: txnctx.DefaultSettings(),
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	cli, err := meta.NewMockClient()
	require.Nil(t, err)
	t.Cleanup(func() { cli.Close() })

	cat := catalog.NewMemCatalog()
	cat.AddAvailableExtension("foo", "1.0", "1.2")
	cat.AddAvailableExtension("bar", "2.0")
	cat.AddAvailableExtension(DefaultManagementExtension, "1.2-1", "1.1-1")

	dialer := newRecordingDialer()
	factory, _ := promutil.NewFactory4Test(promutil.OwnerID(t.Name()))
	env := &testEnv{
		coord:  New(opts, cli, cat, dialer, factory),
		meta:   cli,
		cat:    cat,
		dialer: dialer,
	}

	ctx := context.Background()
	for _, host := range []string{"10.0.0.1", "10.0.0.2"} {
		node, err := env.coord.AddNode(ctx, host, 5432)
		require.Nil(t, err)
		require.Nil(t, cli.Transaction(ctx, func(tx *gorm.DB) error {
			return meta.SetNodeActive(ctx, tx, node.ID, true)
		}))
		node.IsActive = true
		env.workers = append(env.workers, node)
	}
	return env
}

func (e *testEnv) apply(_ context.Context, _ *txnctx.Txn, stmt model.Statement) error {
	return e.cat.Apply(stmt)
}

// execute runs stmt in its own transaction, prepare may adjust the txn first.
func (e *testEnv) execute(ctx context.Context, stmt model.Statement, prepare func(txn *txnctx.Txn)) error {
	return e.coord.RunInTxn(ctx, func(txn *txnctx.Txn) error {
		if prepare != nil {
			prepare(txn)
		}
		return e.coord.Execute(ctx, txn, stmt, e.apply)
	})
}

func (e *testEnv) isDistributed(t *testing.T, class model.ObjectClass, name string) bool {
	ctx := context.Background()
	id, err := e.cat.ResolveIdentity(ctx, nil, class, name)
	require.Nil(t, err)
	ok, err := meta.IsObjectDistributed(ctx, e.meta.DB(), id)
	require.Nil(t, err)
	return ok
}

// wrapped brackets payload with the markers of one job.
func wrapped(payload ...string) []string {
	ret := []string{model.DisableDDLPropagation}
	ret = append(ret, payload...)
	return append(ret, model.EnableDDLPropagation)
}

func txnCommands(jobs ...[]string) []string {
	ret := []string{"BEGIN"}
	for _, job := range jobs {
		ret = append(ret, job...)
	}
	return append(ret, "COMMIT")
}
