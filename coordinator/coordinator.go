package coordinator

import (
	"context"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/catalog"
	"github.com/hanfei1991/distddl/pkg/deparser"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/promutil"
	"github.com/hanfei1991/distddl/pkg/transport"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// DefaultManagementExtension is the extension implementing the propagation
// protocol itself.
const DefaultManagementExtension = "distddl"

// Options configures a Coordinator.
type Options struct {
	Role model.NodeRole
	// ManagementExtension is never propagated.
	ManagementExtension string
	// LoadedVersion is the version of the loaded management library. The
	// version check is skipped when empty.
	LoadedVersion string
	// Settings are the session settings of every transaction.
	Settings txnctx.Settings
	Timeouts transport.TimeoutConfig
}

// ApplyFunc performs the local apply of stmt inside txn.
type ApplyFunc func(ctx context.Context, txn *txnctx.Txn, stmt model.Statement) error

// Coordinator propagates DDL statements from the local node to the workers.
type Coordinator struct {
	opts    Options
	meta    *meta.MetaOpsClient
	catalog catalog.Catalog
	dialer  transport.Dialer

	metrics          *metrics
	transportMetrics *transport.Metrics
}

// New creates a Coordinator. Metrics are created by factory.
func New(
	opts Options,
	metaCli *meta.MetaOpsClient,
	cat catalog.Catalog,
	dialer transport.Dialer,
	factory promutil.Factory,
) *Coordinator {
	if opts.ManagementExtension == "" {
		opts.ManagementExtension = DefaultManagementExtension
	}
	opts.Timeouts = opts.Timeouts.Adjust()
	return &Coordinator{
		opts:             opts,
		meta:             metaCli,
		catalog:          cat,
		dialer:           dialer,
		metrics:          newMetrics(factory),
		transportMetrics: transport.NewMetrics(factory),
	}
}

// RunInTxn runs fn in a new coordinator transaction. The worker transactions
// opened by fn are committed after the coordinator transaction commits, and
// rolled back when fn or the commit fails.
func (c *Coordinator) RunInTxn(ctx context.Context, fn func(txn *txnctx.Txn) error) error {
	session := transport.NewSession(c.dialer, c.opts.Timeouts, c.transportMetrics)
	err := c.meta.Transaction(ctx, func(tx *gorm.DB) error {
		txn := txnctx.New(tx, c.opts.Role, c.opts.Settings)
		txn.Remote = session
		return fn(txn)
	})
	if err != nil {
		if rbErr := session.Rollback(ctx); rbErr != nil {
			log.L().Warn("rollback worker transactions failed", zap.Error(rbErr))
		}
		return err
	}
	if err := session.Commit(ctx); err != nil {
		// the coordinator has committed, the object can be re-driven by
		// activating the affected nodes again
		log.L().Error("commit worker transactions failed after coordinator commit",
			zap.Any("nodes", session.Nodes()), zap.Error(err))
		return err
	}
	return nil
}

// Plan is the remote part of a statement, decided before the local apply.
type Plan struct {
	Job *model.DDLJob
	// Stmt is the statement after normalization and narrowing.
	Stmt model.Statement
}

// PlanStatement decides whether stmt is propagated and builds its job. It
// returns nil when stmt stays local. Drops unmark the objects they propagate.
func (c *Coordinator) PlanStatement(ctx context.Context, txn *txnctx.Txn, stmt model.Statement) (*Plan, error) {
	if !c.shouldPropagateStmt(txn, stmt) {
		return nil, nil
	}

	var (
		kind     model.ObjectKind
		unmarked []model.ObjectIdentity
	)
	propagated := stmt
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		kind = s.Kind
	case *model.AlterObjectVersionStmt:
		kind = s.Kind
	case *model.AlterObjectSchemaStmt:
		kind = s.Kind
	case *model.DropObjectsStmt:
		kind = s.Kind
		narrowed, ids, err := c.FilterDistributedObjects(ctx, txn, s)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		propagated, unmarked = narrowed, ids
	case *model.AlterRoleStmt:
		kind = model.KindRole
		if txn.Role != model.RoleCoordinator {
			return nil, nil
		}
	default:
		return nil, derrors.ErrUnsupportedStatement.GenWithStackByArgs(stmt)
	}

	if err := EnsureCoordinator(txn, stmt); err != nil {
		return nil, err
	}
	workers, err := c.lockWorkers(ctx, txn)
	if err != nil {
		return nil, err
	}
	if err := EnsureSequentialMode(txn, kind); err != nil {
		return nil, err
	}
	// unmarked before the drop is forwarded
	for _, id := range unmarked {
		if err := c.unmark(ctx, txn, id); err != nil {
			return nil, err
		}
	}

	switch s := propagated.(type) {
	case *model.CreateObjectStmt:
		if propagated, err = c.NormalizeCreateObject(ctx, txn, s); err != nil {
			return nil, err
		}
	case *model.AlterRoleStmt:
		if propagated, err = c.NormalizeAlterRole(ctx, txn, s); err != nil {
			return nil, err
		}
	}

	cmd, err := deparser.Deparse(propagated)
	if err != nil {
		return nil, err
	}
	c.metrics.jobsBuilt.WithLabelValues(stmt.StmtName()).Inc()
	return &Plan{
		Job:  BuildJob([]string{cmd}, workers),
		Stmt: propagated,
	}, nil
}

// Execute runs stmt in txn: plan, local apply, dependency materialization
// and registry update, then the worker send.
func (c *Coordinator) Execute(ctx context.Context, txn *txnctx.Txn, stmt model.Statement, apply ApplyFunc) error {
	if err := c.ErrorIfUnstableManagementVersion(ctx, txn, stmt); err != nil {
		return err
	}
	plan, err := c.PlanStatement(ctx, txn, stmt)
	if err != nil {
		return err
	}
	if apply != nil {
		// a propagated create lands locally exactly as on the workers
		local := stmt
		if _, ok := stmt.(*model.CreateObjectStmt); ok && plan != nil {
			local = plan.Stmt
		}
		if err := apply(ctx, txn, local); err != nil {
			return err
		}
	}
	if plan == nil {
		c.metrics.skipped.WithLabelValues(stmt.StmtName()).Inc()
		return nil
	}

	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		id, err := c.catalog.ResolveIdentity(ctx, txn, s.Kind.Class(), s.Name)
		if err != nil {
			return err
		}
		if err := c.EnsureDependenciesAndMark(ctx, txn, id); err != nil {
			return err
		}
	case *model.AlterObjectSchemaStmt:
		id, err := c.catalog.ResolveIdentity(ctx, txn, s.Kind.Class(), s.Name)
		if err != nil {
			return err
		}
		if err := c.EnsureDependenciesExist(ctx, txn, id); err != nil {
			return err
		}
	}

	if len(plan.Job.TargetNodes) == 0 {
		return nil
	}
	log.L().Info("propagating statement to workers",
		zap.String("stmt", stmt.StmtName()),
		zap.String("job-id", plan.Job.ID),
		zap.Int("nodes", len(plan.Job.TargetNodes)))
	return txn.Remote.Execute(ctx, plan.Job)
}

// AddNode registers an inactive worker node.
func (c *Coordinator) AddNode(ctx context.Context, host string, port int) (model.WorkerNode, error) {
	var node model.WorkerNode
	err := c.meta.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		node, err = meta.AddNode(ctx, tx, host, port)
		return err
	})
	return node, err
}

// ActivateNode brings the worker at host:port up to date and marks it
// active. Every distributed object is recreated there in dependency order,
// followed by the role attributes when role propagation is enabled. The
// exclusive row lock makes activation wait for in-flight propagating
// transactions.
func (c *Coordinator) ActivateNode(ctx context.Context, host string, port int) error {
	return c.RunInTxn(ctx, func(txn *txnctx.Txn) error {
		if txn.Role != model.RoleCoordinator {
			return derrors.ErrNotCoordinator.GenWithStackByArgs("activate node")
		}
		node, err := meta.LockNodeExclusive(ctx, txn.DB, host, port)
		if err != nil {
			return err
		}
		if node.IsActive {
			log.L().Info("node is already active", zap.String("node", node.Addr()))
			return nil
		}

		commands, err := c.redriveCommands(ctx, txn)
		if err != nil {
			return err
		}
		if txn.EnableAlterRolePropagation {
			roleCommands, err := c.RoleCommandsAllRoles(ctx, txn)
			if err != nil {
				return err
			}
			commands = append(commands, roleCommands...)
		}
		if len(commands) > 0 {
			job := BuildJob(commands, []model.WorkerNode{node})
			if err := txn.Remote.Execute(ctx, job); err != nil {
				return err
			}
		}
		if err := meta.SetNodeActive(ctx, txn.DB, node.ID, true); err != nil {
			return err
		}
		c.metrics.nodesActivated.Inc()
		log.L().Info("node activated",
			zap.String("node", node.Addr()), zap.Int("commands", len(commands)))
		return nil
	})
}

// redriveCommands regenerates the create commands of every distributed
// object, dependencies first.
func (c *Coordinator) redriveCommands(ctx context.Context, txn *txnctx.Txn) ([]string, error) {
	objects, err := meta.ListDistributedObjects(ctx, txn.DB)
	if err != nil {
		return nil, err
	}
	distributed := make(map[model.ObjectIdentity]bool, len(objects))
	for _, id := range objects {
		distributed[id] = true
	}
	w := newDependencyWalker(c, txn, func(dep model.ObjectIdentity) (bool, error) {
		return !distributed[dep], nil
	})
	for _, id := range objects {
		if err := w.walk(ctx, id); err != nil {
			if derrors.ErrUnknownObject.Equal(err) {
				log.L().Warn("distributed object is missing from the catalog",
					zap.Stringer("object", id), zap.Error(err))
				continue
			}
			return nil, err
		}
	}

	var commands []string
	for _, id := range w.order {
		cmds, err := c.ObjectDDLCommands(ctx, txn, id)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmds...)
	}
	return commands, nil
}
