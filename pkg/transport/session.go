package transport

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/errctx"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

type nodeConn struct {
	node model.WorkerNode
	conn Conn
}

// Session holds the remote transactions of one coordinator transaction, at
// most one connection per worker. A remote transaction is opened on first
// use and stays open until Commit or Rollback. After a failed Execute the
// session only accepts Rollback.
type Session struct {
	dialer   Dialer
	timeouts TimeoutConfig
	metrics  *Metrics

	errCenter *errctx.ErrCenter
	finished  atomic.Bool

	mu    sync.Mutex
	conns map[model.NodeID]*nodeConn
}

func NewSession(dialer Dialer, timeouts TimeoutConfig, metrics *Metrics) *Session {
	return &Session{
		dialer:    dialer,
		timeouts:  timeouts.Adjust(),
		metrics:   metrics,
		errCenter: errctx.NewErrCenter(),
		conns:     make(map[model.NodeID]*nodeConn),
	}
}

// Execute runs the commands of job, in order, on every target node. Nodes
// are served concurrently.
func (s *Session) Execute(ctx context.Context, job *model.DDLJob) error {
	if s.finished.Load() {
		return derrors.ErrRemoteSessionClosed.GenWithStackByArgs()
	}
	if err := s.errCenter.CheckError(); err != nil {
		return derrors.ErrRemoteExecutionFailure.Wrap(err).GenWithStackByArgs(job.ID)
	}
	if len(job.TargetNodes) == 0 {
		return nil
	}

	ctx, cancel := s.errCenter.DeriveContext(ctx)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, s.timeouts.ExecTimeout)
	defer cancelTimeout()

	start := time.Now()
	errs := make([]error, len(job.TargetNodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range job.TargetNodes {
		i, node := i, node
		g.Go(func() error {
			errs[i] = s.executeOnNode(gctx, node, job.Commands)
			return errs[i]
		})
	}
	_ = g.Wait()
	s.metrics.execDuration.Observe(time.Since(start).Seconds())

	if err := multierr.Combine(errs...); err != nil {
		s.errCenter.OnError(err)
		s.metrics.remoteFailures.WithLabelValues("execute").Inc()
		log.L().Error("execute ddl job on workers failed",
			zap.String("job-id", job.ID), zap.Error(err))
		return derrors.ErrRemoteExecutionFailure.Wrap(err).GenWithStackByArgs(job.ID)
	}

	s.metrics.jobsSent.Inc()
	s.metrics.commandsSent.Add(float64(len(job.Commands) * len(job.TargetNodes)))
	log.L().Info("ddl job executed on workers",
		zap.String("job-id", job.ID),
		zap.Int("nodes", len(job.TargetNodes)),
		zap.Int("commands", len(job.Commands)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Session) executeOnNode(ctx context.Context, node model.WorkerNode, commands []string) error {
	conn, err := s.connection(ctx, node)
	if err != nil {
		return err
	}
	for _, cmd := range commands {
		if err := conn.Exec(ctx, cmd); err != nil {
			return errors.Annotatef(err, "worker %s", node.Addr())
		}
	}
	return nil
}

func (s *Session) connection(ctx context.Context, node model.WorkerNode) (Conn, error) {
	s.mu.Lock()
	nc, ok := s.conns[node.ID]
	s.mu.Unlock()
	if ok {
		return nc.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.timeouts.DialTimeout)
	defer cancel()
	conn, err := s.dialer.Dial(dialCtx, node)
	if err != nil {
		return nil, derrors.ErrRemoteConnectFail.Wrap(err).GenWithStackByArgs(node.Addr())
	}
	if err := conn.Exec(ctx, "BEGIN"); err != nil {
		_ = conn.Close(ctx)
		return nil, errors.Annotatef(err, "worker %s", node.Addr())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		// finished while dialing
		_ = conn.Close(ctx)
		return nil, derrors.ErrRemoteSessionClosed.GenWithStackByArgs()
	}
	s.conns[node.ID] = &nodeConn{node: node, conn: conn}
	return conn, nil
}

// Nodes returns the workers the session holds a remote transaction on.
func (s *Session) Nodes() []model.WorkerNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]model.WorkerNode, 0, len(s.conns))
	for _, nc := range s.conns {
		ret = append(ret, nc.node)
	}
	return ret
}

// Commit commits every remote transaction. A session that failed before is
// rolled back instead and the first failure is returned.
func (s *Session) Commit(ctx context.Context) error {
	if execErr := s.errCenter.CheckError(); execErr != nil {
		rbErr := s.finish(ctx, "ROLLBACK", "rollback")
		return derrors.ErrRemoteFinishFail.Wrap(multierr.Append(execErr, rbErr)).GenWithStackByArgs("commit")
	}
	return s.finish(ctx, "COMMIT", "commit")
}

// Rollback aborts every remote transaction.
func (s *Session) Rollback(ctx context.Context) error {
	return s.finish(ctx, "ROLLBACK", "rollback")
}

func (s *Session) finish(ctx context.Context, command, phase string) error {
	if s.finished.Swap(true) {
		return nil
	}
	s.mu.Lock()
	conns := make([]*nodeConn, 0, len(s.conns))
	for _, nc := range s.conns {
		conns = append(conns, nc)
	}
	s.conns = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeouts.FinishTimeout)
	defer cancel()

	errs := make([]error, len(conns))
	var g errgroup.Group
	for i, nc := range conns {
		i, nc := i, nc
		g.Go(func() error {
			err := nc.conn.Exec(ctx, command)
			err = multierr.Append(err, nc.conn.Close(ctx))
			if err != nil {
				errs[i] = errors.Annotatef(err, "worker %s", nc.node.Addr())
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := multierr.Combine(errs...); err != nil {
		s.metrics.remoteFailures.WithLabelValues(phase).Inc()
		log.L().Error("finish remote transactions failed",
			zap.String("phase", phase), zap.Error(err))
		return derrors.ErrRemoteFinishFail.Wrap(err).GenWithStackByArgs(phase)
	}
	log.L().Debug("remote transactions finished",
		zap.String("phase", phase), zap.Int("nodes", len(conns)))
	return nil
}
