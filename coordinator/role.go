package coordinator

import (
	"context"
	"strings"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/catalog"
	"github.com/hanfei1991/distddl/pkg/deparser"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

const bootstrapSuperuser = "postgres"

func reservedRole(name string) bool {
	return strings.HasPrefix(name, "pg_") || name == bootstrapSuperuser
}

func boolOption(name string, v bool) model.Option {
	var i int64
	if v {
		i = 1
	}
	return model.Option{Name: name, Value: model.IntValue(i)}
}

// RoleStmt returns the ALTER ROLE statement reproducing every attribute of
// role.
func RoleStmt(role *catalog.RoleInfo) *model.AlterRoleStmt {
	password := model.NullValue()
	if role.EncryptedPassword != nil {
		password = model.StringValue(*role.EncryptedPassword)
	}
	opts := model.OptionList{
		boolOption("superuser", role.Superuser),
		boolOption("createdb", role.CreateDB),
		boolOption("createrole", role.CreateRole),
		boolOption("inherit", role.Inherit),
		boolOption("canlogin", role.CanLogin),
		boolOption("isreplication", role.Replication),
		boolOption("bypassrls", role.BypassRLS),
		{Name: "connectionlimit", Value: model.IntValue(role.ConnectionLimit)},
		{Name: model.OptionPassword, Value: password},
	}
	if role.ValidUntil != nil {
		opts = append(opts, model.Option{Name: "validUntil", Value: model.StringValue(*role.ValidUntil)})
	}
	return &model.AlterRoleStmt{RoleName: role.Name, Options: opts}
}

// RoleCommandsAllRoles returns one alter_role_if_exists command per
// non-reserved role, in role name order.
func (c *Coordinator) RoleCommandsAllRoles(ctx context.Context, txn *txnctx.Txn) ([]string, error) {
	roles, err := c.catalog.ListRoles(ctx, txn)
	if err != nil {
		return nil, err
	}
	var commands []string
	for _, role := range roles {
		if reservedRole(role.Name) {
			continue
		}
		cmd, err := deparser.Deparse(RoleStmt(role))
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	return commands, nil
}
