package coordinator

import (
	"context"
	"strings"

	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// ShouldPropagate decides whether stmt is forwarded to the workers. For drops
// it also requires at least one named object to be distributed.
func (c *Coordinator) ShouldPropagate(ctx context.Context, txn *txnctx.Txn, stmt model.Statement) (bool, error) {
	if !c.shouldPropagateStmt(txn, stmt) {
		return false, nil
	}
	drop, ok := stmt.(*model.DropObjectsStmt)
	if !ok {
		return true, nil
	}
	_, ids, err := c.FilterDistributedObjects(ctx, txn, drop)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (c *Coordinator) shouldPropagateStmt(txn *txnctx.Txn, stmt model.Statement) bool {
	// replaying a propagated command
	if !txn.EnableDDLPropagation {
		return false
	}
	if !txn.EnableDependencyCreation {
		return false
	}
	if _, ok := stmt.(*model.AlterRoleStmt); ok && !txn.EnableAlterRolePropagation {
		return false
	}
	if c.targetsManagementExtension(stmt) {
		return false
	}
	if txn.MultiStatement && !txn.CanSwitchToSequential() {
		log.L().Warn("not propagating command in a transaction that already ran parallel operations",
			zap.String("stmt", stmt.StmtName()))
		return false
	}
	return true
}

func (c *Coordinator) targetsManagementExtension(stmt model.Statement) bool {
	name := c.opts.ManagementExtension
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		return s.Kind == model.KindExtension && s.Name == name
	case *model.AlterObjectVersionStmt:
		return s.Kind == model.KindExtension && s.Name == name
	case *model.AlterObjectSchemaStmt:
		return s.Kind == model.KindExtension && s.Name == name
	case *model.DropObjectsStmt:
		if s.Kind != model.KindExtension {
			return false
		}
		for _, n := range s.Names {
			if n == name {
				return true
			}
		}
	}
	return false
}

// FilterDistributedObjects narrows stmt to the objects present in the
// registry. Names that do not resolve are skipped. stmt is left untouched.
func (c *Coordinator) FilterDistributedObjects(
	ctx context.Context, txn *txnctx.Txn, stmt *model.DropObjectsStmt,
) (*model.DropObjectsStmt, []model.ObjectIdentity, error) {
	var (
		names []string
		ids   []model.ObjectIdentity
	)
	for _, name := range stmt.Names {
		id, err := c.catalog.ResolveIdentity(ctx, txn, stmt.Kind.Class(), name)
		if err != nil {
			if derrors.ErrUnknownObject.Equal(err) {
				continue
			}
			return nil, nil, err
		}
		distributed, err := meta.IsObjectDistributed(ctx, txn.DB, id)
		if err != nil {
			return nil, nil, err
		}
		if distributed {
			names = append(names, name)
			ids = append(ids, id)
		}
	}
	return stmt.WithNames(names), ids, nil
}

// EnsureCoordinator fails unless the local node is the coordinator.
func EnsureCoordinator(txn *txnctx.Txn, stmt model.Statement) error {
	if txn.Role != model.RoleCoordinator {
		return derrors.ErrNotCoordinator.GenWithStackByArgs(stmt.StmtName())
	}
	return nil
}

// EnsureSequentialMode puts txn in sequential mode. It fails when txn has
// already used more than one connection per worker.
func EnsureSequentialMode(txn *txnctx.Txn, kind model.ObjectKind) error {
	if txn.ParallelAccessed() {
		name := strings.ToLower(string(kind))
		return derrors.ErrParallelConflict.GenWithStackByArgs(name, name)
	}
	if !txn.IsSequential() {
		log.L().Debug("switching to sequential query execution mode",
			zap.String("kind", string(kind)))
		txn.SwitchToSequential()
	}
	return nil
}
