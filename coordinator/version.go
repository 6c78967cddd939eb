package coordinator

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// ErrorIfUnstableManagementVersion rejects creating or updating the
// management extension to a version whose major.minor differs from the
// loaded library. Without an explicit version the default version of the
// catalog is checked.
func (c *Coordinator) ErrorIfUnstableManagementVersion(ctx context.Context, txn *txnctx.Txn, stmt model.Statement) error {
	var (
		name string
		opts model.OptionList
	)
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		if s.Kind != model.KindExtension {
			return nil
		}
		name, opts = s.Name, s.Options
	case *model.AlterObjectVersionStmt:
		if s.Kind != model.KindExtension {
			return nil
		}
		name, opts = s.Name, s.Options
	default:
		return nil
	}
	if name != c.opts.ManagementExtension || c.opts.LoadedVersion == "" {
		return nil
	}

	requested := opts.GetString(model.OptionNewVersion)
	if requested == "" {
		var err error
		requested, err = c.catalog.DefaultVersion(ctx, txn, name)
		if err != nil {
			return err
		}
	}
	return checkMajorMinor(c.opts.LoadedVersion, requested, name)
}

func checkMajorMinor(loaded, requested, extension string) error {
	lv, err := semver.NewVersion(loaded)
	if err != nil {
		return derrors.ErrInvalidVersion.Wrap(err).GenWithStackByArgs(model.KindExtension, extension)
	}
	rv, err := semver.NewVersion(requested)
	if err != nil {
		return derrors.ErrVersionIncompatible.Wrap(err).GenWithStackByArgs(loaded, requested)
	}
	if lv.Major() != rv.Major() || lv.Minor() != rv.Minor() {
		return derrors.ErrVersionIncompatible.GenWithStackByArgs(loaded, requested)
	}
	return nil
}
