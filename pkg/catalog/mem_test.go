package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

func TestMemCatalogExtensions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemCatalog()
	c.AddAvailableExtension("hstore", "1.8", "1.7")
	c.CreateSchema("ext")

	base, err := c.CreateExtension("hstore", "ext", "1.8")
	require.Nil(t, err)
	top, err := c.CreateExtension("hstore_plus", "public", "0.1", "hstore")
	require.Nil(t, err)

	id, err := c.ResolveIdentity(ctx, nil, model.ClassExtension, "hstore")
	require.Nil(t, err)
	require.Equal(t, base, id)

	info, err := c.DescribeExtension(ctx, nil, base)
	require.Nil(t, err)
	require.Equal(t, "ext", info.Schema)
	require.Equal(t, "1.8", info.Version)

	deps, err := c.Dependencies(ctx, nil, top)
	require.Nil(t, err)
	require.Equal(t, []model.ObjectIdentity{
		{Class: model.ClassSchema, ID: PublicSchemaID},
		base,
	}, deps)

	require.Nil(t, c.SetExtensionSchema("hstore", "public"))
	info, err = c.DescribeExtension(ctx, nil, base)
	require.Nil(t, err)
	require.Equal(t, "public", info.Schema)

	version, err := c.DefaultVersion(ctx, nil, "hstore")
	require.Nil(t, err)
	require.Equal(t, "1.8", version)

	c.DropExtension("hstore_plus")
	_, err = c.ResolveIdentity(ctx, nil, model.ClassExtension, "hstore_plus")
	require.True(t, derrors.ErrUnknownObject.Equal(err))

	_, err = c.CreateExtension("other", "missing", "1.0")
	require.True(t, derrors.ErrUnknownObject.Equal(err))
}

func TestMemCatalogRoles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemCatalog()
	secret := "SCRAM-SHA-256$4096:abc"
	c.CreateRole(&RoleInfo{Name: "bob", CanLogin: true, EncryptedPassword: &secret})
	c.CreateRole(&RoleInfo{Name: "alice"})

	password, ok, err := c.EncryptedPassword(ctx, nil, "bob")
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, secret, password)

	_, ok, err = c.EncryptedPassword(ctx, nil, "alice")
	require.Nil(t, err)
	require.False(t, ok)

	roles, err := c.ListRoles(ctx, nil)
	require.Nil(t, err)
	require.Len(t, roles, 2)
	require.Equal(t, "alice", roles[0].Name)
	require.Equal(t, "bob", roles[1].Name)

	name, err := c.ObjectName(ctx, nil, model.ObjectIdentity{Class: model.ClassSchema, ID: PublicSchemaID})
	require.Nil(t, err)
	require.Equal(t, "public", name)
}

func TestMemCatalogApply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewMemCatalog()
	c.AddAvailableExtension("foo", "1.0", "1.2")
	c.CreateSchema("ext")

	require.Nil(t, c.Apply(&model.CreateObjectStmt{Kind: model.KindExtension, Name: "foo"}))
	id, err := c.ResolveIdentity(ctx, nil, model.ClassExtension, "foo")
	require.Nil(t, err)
	info, err := c.DescribeExtension(ctx, nil, id)
	require.Nil(t, err)
	require.Equal(t, "public", info.Schema)
	require.Equal(t, "1.0", info.Version)

	require.Nil(t, c.Apply(&model.AlterObjectVersionStmt{
		Kind:    model.KindExtension,
		Name:    "foo",
		Options: model.OptionList{{Name: model.OptionNewVersion, Value: model.StringValue("1.2")}},
	}))
	require.Nil(t, c.Apply(&model.AlterObjectSchemaStmt{Kind: model.KindExtension, Name: "foo", NewSchema: "ext"}))
	info, err = c.DescribeExtension(ctx, nil, id)
	require.Nil(t, err)
	require.Equal(t, "ext", info.Schema)
	require.Equal(t, "1.2", info.Version)

	require.Nil(t, c.Apply(&model.DropObjectsStmt{Kind: model.KindExtension, Names: []string{"foo", "bar"}, MissingOK: true}))
	_, err = c.ResolveIdentity(ctx, nil, model.ClassExtension, "foo")
	require.True(t, derrors.ErrUnknownObject.Equal(err))

	err = c.Apply(&model.AlterRoleStmt{RoleName: "nobody"})
	require.True(t, derrors.ErrUnknownObject.Equal(err))
}
