package coordinator

import (
	"context"
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

const searchPathUser = "$user"

// NormalizeCreateObject returns a copy of stmt carrying the schema and
// version options. Missing options are appended, explicit ones are kept.
func (c *Coordinator) NormalizeCreateObject(
	ctx context.Context, txn *txnctx.Txn, stmt *model.CreateObjectStmt,
) (*model.CreateObjectStmt, error) {
	opts := stmt.Options
	if !opts.Has(model.OptionSchema) {
		schema, err := c.creationSchema(ctx, txn)
		if err != nil {
			return nil, err
		}
		opts = opts.With(model.Option{Name: model.OptionSchema, Value: model.StringValue(schema)})
	}
	if !opts.Has(model.OptionNewVersion) {
		version, err := c.latestVersion(ctx, txn, stmt.Kind, stmt.Name)
		if err != nil {
			return nil, err
		}
		opts = opts.With(model.Option{Name: model.OptionNewVersion, Value: model.StringValue(version)})
	}
	return stmt.WithOptions(opts), nil
}

// creationSchema returns the first schema of the search path that exists.
func (c *Coordinator) creationSchema(ctx context.Context, txn *txnctx.Txn) (string, error) {
	for _, entry := range txn.SearchPath {
		name := entry
		if name == searchPathUser {
			name = txn.CurrentUser
		}
		if name == "" {
			continue
		}
		_, err := c.catalog.ResolveIdentity(ctx, txn, model.ClassSchema, name)
		if err == nil {
			return name, nil
		}
		if !derrors.ErrUnknownObject.Equal(err) {
			return "", err
		}
	}
	return "", derrors.ErrUndefinedSchema.GenWithStackByArgs()
}

func (c *Coordinator) latestVersion(ctx context.Context, txn *txnctx.Txn, kind model.ObjectKind, name string) (string, error) {
	versions, err := c.catalog.AvailableVersions(ctx, txn, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", derrors.ErrInvalidVersion.GenWithStackByArgs(kind, name)
	}
	return LatestVersion(versions), nil
}

// LatestVersion returns the highest of versions. Versions that do not parse
// as semantic versions sort below the ones that do, and among themselves by
// text. versions must not be empty.
func LatestVersion(versions []string) string {
	sorted := append([]string(nil), versions...)
	parsed := make(map[string]*semver.Version, len(sorted))
	for _, v := range sorted {
		if sv, err := semver.NewVersion(v); err == nil {
			parsed[v] = sv
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, iok := parsed[sorted[i]]
		vj, jok := parsed[sorted[j]]
		switch {
		case iok && jok:
			return vi.LessThan(vj)
		case iok != jok:
			return jok
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted[len(sorted)-1]
}

// NormalizeAlterRole returns a copy of stmt whose password option carries the
// stored encrypted password, or NULL when the role has none. Workers never
// see the clear text.
func (c *Coordinator) NormalizeAlterRole(
	ctx context.Context, txn *txnctx.Txn, stmt *model.AlterRoleStmt,
) (*model.AlterRoleStmt, error) {
	if !stmt.Options.Has(model.OptionPassword) {
		return stmt, nil
	}
	password, ok, err := c.catalog.EncryptedPassword(ctx, txn, stmt.RoleName)
	if err != nil {
		return nil, err
	}
	value := model.NullValue()
	if ok {
		value = model.StringValue(password)
	}
	return stmt.WithOptions(stmt.Options.Replace(model.OptionPassword, value)), nil
}
