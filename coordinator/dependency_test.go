package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/catalog"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/meta"
	"github.com/hanfei1991/distddl/pkg/promutil"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ResolveIdentity(_ context.Context, _ *txnctx.Txn, class model.ObjectClass, name string) (model.ObjectIdentity, error) {
	args := m.Called(class, name)
	return args.Get(0).(model.ObjectIdentity), args.Error(1)
}

func (m *mockCatalog) ObjectName(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func (m *mockCatalog) DescribeExtension(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) (*catalog.ExtensionInfo, error) {
	args := m.Called(id)
	info, _ := args.Get(0).(*catalog.ExtensionInfo)
	return info, args.Error(1)
}

func (m *mockCatalog) AvailableVersions(_ context.Context, _ *txnctx.Txn, extension string) ([]string, error) {
	args := m.Called(extension)
	versions, _ := args.Get(0).([]string)
	return versions, args.Error(1)
}

func (m *mockCatalog) DefaultVersion(_ context.Context, _ *txnctx.Txn, extension string) (string, error) {
	args := m.Called(extension)
	return args.String(0), args.Error(1)
}

func (m *mockCatalog) Dependencies(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) ([]model.ObjectIdentity, error) {
	args := m.Called(id)
	deps, _ := args.Get(0).([]model.ObjectIdentity)
	return deps, args.Error(1)
}

func (m *mockCatalog) EncryptedPassword(_ context.Context, _ *txnctx.Txn, role string) (string, bool, error) {
	args := m.Called(role)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockCatalog) ListRoles(_ context.Context, _ *txnctx.Txn) ([]*catalog.RoleInfo, error) {
	args := m.Called()
	roles, _ := args.Get(0).([]*catalog.RoleInfo)
	return roles, args.Error(1)
}

func extensionID(id uint32) model.ObjectIdentity {
	return model.ObjectIdentity{Class: model.ClassExtension, ID: id}
}

func newMockCatalogCoordinator(t *testing.T, cat catalog.Catalog) (*Coordinator, *meta.MetaOpsClient) {
	cli, err := meta.NewMockClient()
	require.Nil(t, err)
	t.Cleanup(func() { cli.Close() })
	factory, _ := promutil.NewFactory4Test(promutil.OwnerID(t.Name()))
	return New(newTestOptions(), cli, cat, newRecordingDialer(), factory), cli
}

func TestDependencyCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cat := &mockCatalog{}
	a, b := extensionID(20000), extensionID(20001)
	cat.On("Dependencies", a).Return([]model.ObjectIdentity{b}, nil)
	cat.On("Dependencies", b).Return([]model.ObjectIdentity{a}, nil)
	c, cli := newMockCatalogCoordinator(t, cat)

	err := cli.Transaction(ctx, func(tx *gorm.DB) error {
		txn := txnctx.New(tx, model.RoleCoordinator, txnctx.DefaultSettings())
		return c.EnsureDependenciesAndMark(ctx, txn, a)
	})
	require.True(t, derrors.ErrDependencyCycle.Equal(err))
	cat.AssertExpectations(t)
}

func TestDependenciesInPostOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cat := &mockCatalog{}
	// top requires mid and base, mid requires base, all in schema s
	top, mid, base := extensionID(20010), extensionID(20011), extensionID(20012)
	schema := model.ObjectIdentity{Class: model.ClassSchema, ID: 20013}
	builtin := model.ObjectIdentity{Class: model.ClassSchema, ID: 2200}
	role := model.ObjectIdentity{Class: model.ClassRole, ID: 20014}
	cat.On("Dependencies", top).Return([]model.ObjectIdentity{schema, mid, base, role}, nil)
	cat.On("Dependencies", mid).Return([]model.ObjectIdentity{builtin, base}, nil)
	cat.On("Dependencies", base).Return([]model.ObjectIdentity{schema}, nil)
	cat.On("Dependencies", schema).Return(nil, nil)
	c, cli := newMockCatalogCoordinator(t, cat)

	err := cli.Transaction(ctx, func(tx *gorm.DB) error {
		txn := txnctx.New(tx, model.RoleCoordinator, txnctx.DefaultSettings())
		deps, err := c.missingDependencies(ctx, txn, top)
		require.Nil(t, err)
		require.Equal(t, []model.ObjectIdentity{schema, base, mid}, deps)

		// distributed objects are neither recreated nor descended into
		require.Nil(t, meta.MarkObjectDistributed(ctx, tx, mid))
		deps, err = c.missingDependencies(ctx, txn, top)
		require.Nil(t, err)
		require.Equal(t, []model.ObjectIdentity{schema, base}, deps)
		return nil
	})
	require.Nil(t, err)
}

func TestObjectDDLCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cat := &mockCatalog{}
	ext := extensionID(20020)
	schema := model.ObjectIdentity{Class: model.ClassSchema, ID: 20021}
	cat.On("DescribeExtension", ext).Return(&catalog.ExtensionInfo{
		Identity: ext, Name: "postgis", Schema: "Geo", Version: "3.4.0dev",
	}, nil)
	cat.On("ObjectName", schema).Return("Geo", nil)
	c := newUnitCoordinator(t, cat)
	txn := txnctx.New(nil, model.RoleCoordinator, txnctx.DefaultSettings())

	cmds, err := c.ObjectDDLCommands(ctx, txn, ext)
	require.Nil(t, err)
	require.Equal(t, []string{`CREATE EXTENSION IF NOT EXISTS postgis WITH SCHEMA "Geo" VERSION "3.4.0dev" CASCADE`}, cmds)

	cmds, err = c.ObjectDDLCommands(ctx, txn, schema)
	require.Nil(t, err)
	require.Equal(t, []string{`CREATE SCHEMA IF NOT EXISTS "Geo"`}, cmds)

	_, err = c.ObjectDDLCommands(ctx, txn, model.ObjectIdentity{Class: model.ClassRole, ID: 20022})
	require.True(t, derrors.ErrUnsupportedObjectClass.Equal(err))
}
