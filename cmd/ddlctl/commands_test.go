package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

func TestCreateExtensionStmt(t *testing.T) {
	t.Parallel()

	flags := &createExtensionFlags{schema: "app", ifNotExists: true}
	stmt := flags.stmt("foo")
	require.Equal(t, model.KindExtension, stmt.Kind)
	require.True(t, stmt.IfNotExists)
	require.Equal(t, "app", stmt.Options.GetString(model.OptionSchema))
	require.False(t, stmt.Options.Has(model.OptionNewVersion))
}

func TestAlterExtensionStmt(t *testing.T) {
	t.Parallel()

	stmt, err := (&alterExtensionFlags{updateTo: "1.2"}).stmt("foo")
	require.Nil(t, err)
	update, ok := stmt.(*model.AlterObjectVersionStmt)
	require.True(t, ok)
	require.Equal(t, "1.2", update.Options.GetString(model.OptionNewVersion))

	stmt, err = (&alterExtensionFlags{setSchema: "other"}).stmt("foo")
	require.Nil(t, err)
	require.Equal(t, &model.AlterObjectSchemaStmt{
		Kind: model.KindExtension, Name: "foo", NewSchema: "other",
	}, stmt)

	_, err = (&alterExtensionFlags{setSchema: "other", updateTo: "1.2"}).stmt("foo")
	require.True(t, derrors.Is(err, derrors.ErrInvalidArgument))
}

func TestDropExtensionStmt(t *testing.T) {
	t.Parallel()

	stmt := (&dropExtensionFlags{}).stmt([]string{"foo", "bar"})
	require.Equal(t, model.DropRestrict, stmt.Behavior)
	require.False(t, stmt.MissingOK)
	require.Equal(t, []string{"foo", "bar"}, stmt.Names)

	stmt = (&dropExtensionFlags{cascade: true, ifExists: true}).stmt([]string{"foo"})
	require.Equal(t, model.DropCascade, stmt.Behavior)
	require.True(t, stmt.MissingOK)
}

func TestAlterRoleStmt(t *testing.T) {
	t.Parallel()

	flags := &alterRoleFlags{
		password: "secret",
		options:  []string{"canlogin=1", "validUntil=2030-01-01"},
	}
	stmt, err := flags.stmt("alice", true)
	require.Nil(t, err)
	require.Equal(t, "alice", stmt.RoleName)
	require.Equal(t, model.OptionList{
		{Name: "canlogin", Value: model.IntValue(1)},
		{Name: "validUntil", Value: model.StringValue("2030-01-01")},
		{Name: model.OptionPassword, Value: model.StringValue("secret")},
	}, stmt.Options)

	stmt, err = flags.stmt("alice", false)
	require.Nil(t, err)
	require.False(t, stmt.Options.Has(model.OptionPassword))

	_, err = (&alterRoleFlags{options: []string{"canlogin"}}).stmt("alice", false)
	require.True(t, derrors.Is(err, derrors.ErrInvalidArgument))
}

func TestParseNodeAddr(t *testing.T) {
	t.Parallel()

	host, port, err := parseNodeAddr("10.0.0.3:5433")
	require.Nil(t, err)
	require.Equal(t, "10.0.0.3", host)
	require.Equal(t, 5433, port)

	for _, addr := range []string{"10.0.0.3", "10.0.0.3:x", ":5432", "10.0.0.3:70000"} {
		_, _, err := parseNodeAddr(addr)
		require.True(t, derrors.Is(err, derrors.ErrInvalidArgument), addr)
	}
}

func TestRootCommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	require.ElementsMatch(t, []string{
		"create-extension", "alter-extension", "drop-extension",
		"alter-role", "add-node", "activate-node",
	}, names)
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}
