package deparser

import (
	"fmt"
	"strings"

	"github.com/pingcap/errors"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
)

// Deparse renders stmt as canonical command text that is safe to replay on any
// node at any time. It does not depend on the node it runs on.
func Deparse(stmt model.Statement) (string, error) {
	var b strings.Builder
	var err error
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		err = appendCreateObject(&b, s)
	case *model.AlterObjectVersionStmt:
		appendAlterObjectVersion(&b, s)
	case *model.AlterObjectSchemaStmt:
		appendAlterObjectSchema(&b, s)
	case *model.DropObjectsStmt:
		err = appendDropObjects(&b, s)
	case *model.AlterRoleStmt:
		err = appendAlterRoleIfExists(&b, s)
	case *model.CreateSchemaStmt:
		fmt.Fprintf(&b, "CREATE SCHEMA IF NOT EXISTS %s", QuoteIdentifier(s.Name))
	default:
		return "", derrors.ErrUnsupportedStatement.GenWithStackByArgs(stmt)
	}
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// The existence guard and CASCADE are added regardless of the statement's own
// flags: a worker that already converged must not fail, and objects the new
// one requires are pulled in on the worker as well.
func appendCreateObject(b *strings.Builder, s *model.CreateObjectStmt) error {
	schema := s.Options.GetString(model.OptionSchema)
	if schema == "" {
		return derrors.ErrUndefinedSchema.GenWithStackByArgs()
	}
	fmt.Fprintf(b, "CREATE %s IF NOT EXISTS %s WITH SCHEMA %s",
		s.Kind, QuoteIdentifier(s.Name), QuoteIdentifier(schema))
	if version := s.Options.GetString(model.OptionNewVersion); version != "" {
		fmt.Fprintf(b, " VERSION %s", QuoteVersion(version))
	}
	b.WriteString(" CASCADE")
	return nil
}

func appendAlterObjectVersion(b *strings.Builder, s *model.AlterObjectVersionStmt) {
	fmt.Fprintf(b, "ALTER %s %s UPDATE", s.Kind, QuoteIdentifier(s.Name))
	if version := s.Options.GetString(model.OptionNewVersion); version != "" {
		fmt.Fprintf(b, " TO %s", QuoteVersion(version))
	}
}

func appendAlterObjectSchema(b *strings.Builder, s *model.AlterObjectSchemaStmt) {
	fmt.Fprintf(b, "ALTER %s %s SET SCHEMA %s",
		s.Kind, QuoteIdentifier(s.Name), QuoteIdentifier(s.NewSchema))
}

func appendDropObjects(b *strings.Builder, s *model.DropObjectsStmt) error {
	if len(s.Names) == 0 {
		return derrors.ErrEmptyObjectList.GenWithStackByArgs(s.StmtName())
	}
	fmt.Fprintf(b, "DROP %s IF EXISTS ", s.Kind)
	for i, name := range s.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdentifier(name))
	}
	fmt.Fprintf(b, " %s;", s.Behavior)
	return nil
}

// Roles are created lazily on workers, so the ALTER ROLE text is handed to
// alter_role_if_exists instead of being run directly.
func appendAlterRoleIfExists(b *strings.Builder, s *model.AlterRoleStmt) error {
	alterRole, err := DeparseAlterRole(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "SELECT alter_role_if_exists(%s, %s)",
		QuoteLiteral(QuoteIdentifier(s.RoleName)), QuoteLiteral(alterRole))
	return nil
}

// roleFlags maps boolean role options to their keyword when set.
var roleFlags = map[string]string{
	"superuser":     "SUPERUSER",
	"createdb":      "CREATEDB",
	"createrole":    "CREATEROLE",
	"inherit":       "INHERIT",
	"canlogin":      "LOGIN",
	"isreplication": "REPLICATION",
	"bypassrls":     "BYPASSRLS",
}

// DeparseAlterRole renders the plain ALTER ROLE statement.
func DeparseAlterRole(s *model.AlterRoleStmt) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER ROLE %s", QuoteIdentifier(s.RoleName))
	if len(s.Options) > 0 {
		b.WriteString(" WITH")
	}
	for _, opt := range s.Options {
		b.WriteByte(' ')
		if err := appendRoleOption(&b, opt); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func appendRoleOption(b *strings.Builder, opt model.Option) error {
	if keyword, ok := roleFlags[opt.Name]; ok {
		if opt.Value.Kind != model.ValueInteger {
			return derrors.ErrUnsupportedRoleOption.GenWithStackByArgs(opt.Name)
		}
		if opt.Value.Int == 0 {
			b.WriteString("NO")
		}
		b.WriteString(keyword)
		return nil
	}

	switch opt.Name {
	case "connectionlimit":
		if opt.Value.Kind != model.ValueInteger {
			return derrors.ErrUnsupportedRoleOption.GenWithStackByArgs(opt.Name)
		}
		fmt.Fprintf(b, "CONNECTION LIMIT %d", opt.Value.Int)
	case model.OptionPassword:
		if opt.Value.IsNull() {
			b.WriteString("PASSWORD NULL")
		} else {
			fmt.Fprintf(b, "PASSWORD %s", QuoteLiteral(opt.Value.String()))
		}
	case "validUntil":
		fmt.Fprintf(b, "VALID UNTIL %s", QuoteLiteral(opt.Value.String()))
	default:
		return errors.Trace(derrors.ErrUnsupportedRoleOption.GenWithStackByArgs(opt.Name))
	}
	return nil
}
