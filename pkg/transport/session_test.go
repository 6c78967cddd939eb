package transport

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/promutil"
)

var (
	worker1 = model.WorkerNode{ID: 1, Host: "10.0.0.1", Port: 5432, IsActive: true}
	worker2 = model.WorkerNode{ID: 2, Host: "10.0.0.2", Port: 5432, IsActive: true}
)

func newTestSession(t *testing.T, dialer Dialer) (*Session, *Metrics) {
	factory, _ := promutil.NewFactory4Test(promutil.OwnerID(t.Name()))
	metrics := NewMetrics(factory)
	return NewSession(dialer, DefaultTimeoutConfig(), metrics), metrics
}

func testJob(id string, payload ...string) *model.DDLJob {
	commands := []string{model.DisableDDLPropagation}
	commands = append(commands, payload...)
	commands = append(commands, model.EnableDDLPropagation)
	return &model.DDLJob{
		ID:          id,
		TargetNodes: []model.WorkerNode{worker1, worker2},
		Commands:    commands,
	}
}

func TestSessionExecuteAndCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dialer := newFakeDialer()
	s, metrics := newTestSession(t, dialer)

	require.Nil(t, s.Execute(ctx, testJob("j1", "CREATE SCHEMA IF NOT EXISTS s")))
	require.Nil(t, s.Execute(ctx, testJob("j2", "DROP EXTENSION IF EXISTS foo CASCADE;")))
	require.Len(t, s.Nodes(), 2)

	require.Nil(t, s.Commit(ctx))

	for _, w := range []model.WorkerNode{worker1, worker2} {
		// one connection per worker for the whole transaction
		require.Equal(t, 1, dialer.dials[w.Addr()])
		require.Equal(t, 1, dialer.closed[w.Addr()])
		require.Equal(t, []string{
			"BEGIN",
			model.DisableDDLPropagation,
			"CREATE SCHEMA IF NOT EXISTS s",
			model.EnableDDLPropagation,
			model.DisableDDLPropagation,
			"DROP EXTENSION IF EXISTS foo CASCADE;",
			model.EnableDDLPropagation,
			"COMMIT",
		}, dialer.commands(w.Addr()))
	}
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.jobsSent))
	require.Equal(t, float64(12), testutil.ToFloat64(metrics.commandsSent))

	err := s.Execute(ctx, testJob("j3", "SELECT 1"))
	require.True(t, derrors.ErrRemoteSessionClosed.Equal(err))
	// finishing twice is a no-op
	require.Nil(t, s.Rollback(ctx))
}

func TestSessionFailurePoisons(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dialer := newFakeDialer()
	dialer.failOn[worker2.Addr()] = "CREATE EXTENSION"
	s, metrics := newTestSession(t, dialer)

	err := s.Execute(ctx, testJob("j1", "CREATE EXTENSION IF NOT EXISTS foo WITH SCHEMA public CASCADE"))
	require.True(t, derrors.Is(err, derrors.ErrRemoteExecutionFailure))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.remoteFailures.WithLabelValues("execute")))

	// later jobs fail without reaching the workers
	before := len(dialer.commands(worker1.Addr()))
	err = s.Execute(ctx, testJob("j2", "SELECT 1"))
	require.True(t, derrors.Is(err, derrors.ErrRemoteExecutionFailure))
	require.Len(t, dialer.commands(worker1.Addr()), before)

	// commit turns into rollback
	err = s.Commit(ctx)
	require.True(t, derrors.Is(err, derrors.ErrRemoteFinishFail))
	cmds := dialer.commands(worker1.Addr())
	require.Equal(t, "ROLLBACK", cmds[len(cmds)-1])
	require.NotContains(t, cmds, "COMMIT")
}

func TestSessionDialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dialer := newFakeDialer()
	dialer.dialFail[worker1.Addr()] = true
	s, _ := newTestSession(t, dialer)

	err := s.Execute(ctx, testJob("j1", "SELECT 1"))
	require.True(t, derrors.Is(err, derrors.ErrRemoteExecutionFailure))
	require.Nil(t, s.Rollback(ctx))
	require.Equal(t, 0, dialer.closed[worker1.Addr()])
}

func TestSessionNoTargets(t *testing.T) {
	t.Parallel()

	dialer := newFakeDialer()
	s, _ := newTestSession(t, dialer)
	require.Nil(t, s.Execute(context.Background(), &model.DDLJob{ID: "empty"}))
	require.Len(t, dialer.dials, 0)
	require.Nil(t, s.Commit(context.Background()))
}
