package coordinator

import (
	"context"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/deparser"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// SQLApply is an ApplyFunc running stmt on the coordinator database through
// txn. Creates are normalized first so the local object lands where the
// workers' copies will.
func (c *Coordinator) SQLApply(ctx context.Context, txn *txnctx.Txn, stmt model.Statement) error {
	var (
		sql string
		err error
	)
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		normalized, nerr := c.NormalizeCreateObject(ctx, txn, s)
		if nerr != nil {
			return nerr
		}
		sql, err = deparser.Deparse(normalized)
	case *model.AlterRoleStmt:
		sql, err = deparser.DeparseAlterRole(s)
	default:
		sql, err = deparser.Deparse(stmt)
	}
	if err != nil {
		return err
	}
	if err := txn.DB.WithContext(ctx).Exec(sql).Error; err != nil {
		return derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	return nil
}
