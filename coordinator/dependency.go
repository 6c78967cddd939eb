package coordinator

import (
	"context"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/autoid"
	"github.com/hanfei1991/distddl/pkg/deparser"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// supportedDependency reports whether objects of id's class can be recreated
// on workers. Objects below FirstNormalObjectID exist on every node from the
// start.
func supportedDependency(id model.ObjectIdentity) bool {
	if id.ID < autoid.FirstNormalObjectID {
		return false
	}
	switch id.Class {
	case model.ClassSchema, model.ClassExtension:
		return true
	}
	return false
}

// dependencyWalker orders objects so that every object comes after the
// objects it depends on.
type dependencyWalker struct {
	c    *Coordinator
	txn  *txnctx.Txn
	skip func(model.ObjectIdentity) (bool, error)

	visited map[model.ObjectIdentity]bool
	onStack map[model.ObjectIdentity]bool
	order   []model.ObjectIdentity
}

func newDependencyWalker(c *Coordinator, txn *txnctx.Txn, skip func(model.ObjectIdentity) (bool, error)) *dependencyWalker {
	return &dependencyWalker{
		c:       c,
		txn:     txn,
		skip:    skip,
		visited: make(map[model.ObjectIdentity]bool),
		onStack: make(map[model.ObjectIdentity]bool),
	}
}

func (w *dependencyWalker) walk(ctx context.Context, id model.ObjectIdentity) error {
	if w.onStack[id] {
		return derrors.ErrDependencyCycle.GenWithStackByArgs(id.String())
	}
	if w.visited[id] {
		return nil
	}
	w.onStack[id] = true
	defer delete(w.onStack, id)

	deps, err := w.c.catalog.Dependencies(ctx, w.txn, id)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if !supportedDependency(dep) {
			continue
		}
		skip, err := w.skip(dep)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		if err := w.walk(ctx, dep); err != nil {
			return err
		}
	}

	w.visited[id] = true
	w.order = append(w.order, id)
	return nil
}

// missingDependencies returns the supported, not yet distributed, direct and
// transitive dependencies of id, dependencies first.
func (c *Coordinator) missingDependencies(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) ([]model.ObjectIdentity, error) {
	w := newDependencyWalker(c, txn, func(dep model.ObjectIdentity) (bool, error) {
		return meta.IsObjectDistributed(ctx, txn.DB, dep)
	})
	if err := w.walk(ctx, id); err != nil {
		return nil, err
	}
	// id itself is last
	return w.order[:len(w.order)-1], nil
}

// EnsureDependenciesExist creates the missing dependencies of id on every
// active worker and marks them distributed.
func (c *Coordinator) EnsureDependenciesExist(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) error {
	deps, err := c.missingDependencies(ctx, txn, id)
	if err != nil {
		return err
	}
	if len(deps) == 0 {
		return nil
	}

	var commands []string
	for _, dep := range deps {
		cmds, err := c.ObjectDDLCommands(ctx, txn, dep)
		if err != nil {
			return err
		}
		commands = append(commands, cmds...)
	}

	workers, err := c.lockWorkers(ctx, txn)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := c.mark(ctx, txn, dep); err != nil {
			return err
		}
	}

	log.L().Info("materializing dependencies on workers",
		zap.Stringer("object", id), zap.Int("dependencies", len(deps)))
	if len(workers) == 0 {
		return nil
	}
	if err := EnsureSequentialMode(txn, id.Class.Kind()); err != nil {
		return err
	}
	return txn.Remote.Execute(ctx, BuildJob(commands, workers))
}

// EnsureDependenciesAndMark materializes the dependencies of id and then
// marks id itself distributed.
func (c *Coordinator) EnsureDependenciesAndMark(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) error {
	if err := c.EnsureDependenciesExist(ctx, txn, id); err != nil {
		return err
	}
	return c.mark(ctx, txn, id)
}

// ObjectDDLCommands regenerates the idempotent commands creating id as it
// currently is on the coordinator.
func (c *Coordinator) ObjectDDLCommands(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) ([]string, error) {
	var stmt model.Statement
	switch id.Class {
	case model.ClassSchema:
		name, err := c.catalog.ObjectName(ctx, txn, id)
		if err != nil {
			return nil, err
		}
		stmt = &model.CreateSchemaStmt{Name: name}
	case model.ClassExtension:
		info, err := c.catalog.DescribeExtension(ctx, txn, id)
		if err != nil {
			return nil, err
		}
		stmt = &model.CreateObjectStmt{
			Kind: model.KindExtension,
			Name: info.Name,
			Options: model.OptionList{
				{Name: model.OptionSchema, Value: model.StringValue(info.Schema)},
				{Name: model.OptionNewVersion, Value: model.StringValue(info.Version)},
			},
			IfNotExists: true,
		}
	default:
		return nil, derrors.ErrUnsupportedObjectClass.GenWithStackByArgs(id.Class)
	}
	cmd, err := deparser.Deparse(stmt)
	if err != nil {
		return nil, err
	}
	return []string{cmd}, nil
}

// lockWorkers returns the active workers, taking the shared node-table lock
// on first use in txn.
func (c *Coordinator) lockWorkers(ctx context.Context, txn *txnctx.Txn) ([]model.WorkerNode, error) {
	if workers, ok := txn.LockedWorkers(); ok {
		return workers, nil
	}
	workers, err := meta.LockNodesShared(ctx, txn.DB)
	if err != nil {
		return nil, err
	}
	txn.SetLockedWorkers(workers)
	return workers, nil
}

func (c *Coordinator) mark(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) error {
	if err := meta.MarkObjectDistributed(ctx, txn.DB, id); err != nil {
		return err
	}
	c.metrics.objectsMarked.Inc()
	return nil
}

func (c *Coordinator) unmark(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) error {
	if err := meta.UnmarkObjectDistributed(ctx, txn.DB, id); err != nil {
		return err
	}
	c.metrics.objectsUnmarked.Inc()
	return nil
}
