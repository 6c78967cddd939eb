package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

func newPGTestTxn(t *testing.T) (*txnctx.Txn, sqlmock.Sqlmock) {
	cli, mock, err := meta.NewMockPostgresClient()
	require.Nil(t, err)
	t.Cleanup(func() { cli.Close() })
	return txnctx.New(cli.DB(), model.RoleCoordinator, txnctx.DefaultSettings()), mock
}

func TestPGCatalogResolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	txn, mock := newPGTestTxn(t)
	c := NewPGCatalog()

	mock.ExpectQuery(`SELECT oid FROM pg_catalog.pg_extension WHERE extname = \$1`).
		WithArgs("hstore").
		WillReturnRows(sqlmock.NewRows([]string{"oid"}).AddRow(16390))
	id, err := c.ResolveIdentity(ctx, txn, model.ClassExtension, "hstore")
	require.Nil(t, err)
	require.Equal(t, model.ObjectIdentity{Class: model.ClassExtension, ID: 16390}, id)

	mock.ExpectQuery(`SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"oid"}))
	_, err = c.ResolveIdentity(ctx, txn, model.ClassSchema, "nope")
	require.True(t, derrors.ErrUnknownObject.Equal(err))

	require.Nil(t, mock.ExpectationsWereMet())
}

func TestPGCatalogDescribeAndDependencies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	txn, mock := newPGTestTxn(t)
	c := NewPGCatalog()
	id := model.ObjectIdentity{Class: model.ClassExtension, ID: 16390}

	mock.ExpectQuery(`SELECT e.extname AS name, n.nspname AS schema, e.extversion AS version`).
		WithArgs(uint32(16390)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "schema", "version"}).AddRow("hstore", "public", "1.8"))
	info, err := c.DescribeExtension(ctx, txn, id)
	require.Nil(t, err)
	require.Equal(t, &ExtensionInfo{Identity: id, Name: "hstore", Schema: "public", Version: "1.8"}, info)

	mock.ExpectQuery(`SELECT extnamespace FROM pg_catalog.pg_extension WHERE oid = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"extnamespace"}).AddRow(2200))
	mock.ExpectQuery(`SELECT refobjid FROM pg_catalog.pg_depend`).
		WillReturnRows(sqlmock.NewRows([]string{"refobjid"}).AddRow(16385))
	deps, err := c.Dependencies(ctx, txn, id)
	require.Nil(t, err)
	require.Equal(t, []model.ObjectIdentity{
		{Class: model.ClassSchema, ID: 2200},
		{Class: model.ClassExtension, ID: 16385},
	}, deps)

	mock.ExpectQuery(`SELECT version FROM pg_catalog.pg_available_extension_versions WHERE name = \$1`).
		WithArgs("hstore").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("1.7").AddRow("1.8"))
	versions, err := c.AvailableVersions(ctx, txn, "hstore")
	require.Nil(t, err)
	require.Equal(t, []string{"1.7", "1.8"}, versions)

	require.Nil(t, mock.ExpectationsWereMet())
}

func TestPGCatalogRoles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	txn, mock := newPGTestTxn(t)
	c := NewPGCatalog()

	mock.ExpectQuery(`SELECT rolpassword FROM pg_catalog.pg_authid WHERE rolname = \$1`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"rolpassword"}).AddRow(nil))
	_, ok, err := c.EncryptedPassword(ctx, txn, "bob")
	require.Nil(t, err)
	require.False(t, ok)

	mock.ExpectQuery(`SELECT rolname, rolsuper, rolcreatedb`).
		WillReturnRows(sqlmock.NewRows([]string{
			"rolname", "rolsuper", "rolcreatedb", "rolcreaterole", "rolinherit", "rolcanlogin",
			"rolreplication", "rolbypassrls", "rolconnlimit", "rolpassword", "rolvaliduntil",
		}).AddRow("bob", false, true, false, true, true, false, false, -1, "md5abc", nil))
	roles, err := c.ListRoles(ctx, txn)
	require.Nil(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, "bob", roles[0].Name)
	require.True(t, roles[0].CreateDB)
	require.Equal(t, int64(-1), roles[0].ConnectionLimit)
	require.Equal(t, "md5abc", *roles[0].EncryptedPassword)
	require.Nil(t, roles[0].ValidUntil)

	require.Nil(t, mock.ExpectationsWereMet())
}
