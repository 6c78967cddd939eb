package model

// Statement is one of the statement variants handled by the propagation
// protocol. Statements are produced by the parser and treated as immutable:
// every rewrite returns a derived copy.
type Statement interface {
	// StmtName is the name used in logs, metrics and error messages.
	StmtName() string
}

// DropBehavior is the CASCADE/RESTRICT choice of a drop.
type DropBehavior int

const (
	DropCascade DropBehavior = iota
	DropRestrict
)

func (b DropBehavior) String() string {
	if b == DropRestrict {
		return "RESTRICT"
	}
	return "CASCADE"
}

// CreateObjectStmt is CREATE <kind> [IF NOT EXISTS] <name> [WITH options].
type CreateObjectStmt struct {
	Kind        ObjectKind
	Name        string
	Options     OptionList
	IfNotExists bool
}

func (s *CreateObjectStmt) StmtName() string { return "CREATE " + string(s.Kind) }

// WithOptions returns a copy of s carrying opts.
func (s *CreateObjectStmt) WithOptions(opts OptionList) *CreateObjectStmt {
	ret := *s
	ret.Options = opts
	return &ret
}

// AlterObjectVersionStmt is ALTER <kind> <name> UPDATE [TO version].
type AlterObjectVersionStmt struct {
	Kind    ObjectKind
	Name    string
	Options OptionList
}

func (s *AlterObjectVersionStmt) StmtName() string { return "ALTER " + string(s.Kind) + " UPDATE" }

// AlterObjectSchemaStmt is ALTER <kind> <name> SET SCHEMA <schema>.
type AlterObjectSchemaStmt struct {
	Kind      ObjectKind
	Name      string
	NewSchema string
}

func (s *AlterObjectSchemaStmt) StmtName() string { return "ALTER " + string(s.Kind) + " SET SCHEMA" }

// DropObjectsStmt is DROP <kind> [IF EXISTS] <names> [CASCADE|RESTRICT].
type DropObjectsStmt struct {
	Kind      ObjectKind
	Names     []string
	Behavior  DropBehavior
	MissingOK bool
}

func (s *DropObjectsStmt) StmtName() string { return "DROP " + string(s.Kind) }

// WithNames returns a copy of s naming only names.
func (s *DropObjectsStmt) WithNames(names []string) *DropObjectsStmt {
	ret := *s
	ret.Names = append([]string(nil), names...)
	return &ret
}

// AlterRoleStmt is ALTER ROLE <role> [WITH] options.
type AlterRoleStmt struct {
	RoleName string
	Options  OptionList
}

func (*AlterRoleStmt) StmtName() string { return "ALTER ROLE" }

// WithOptions returns a copy of s carrying opts.
func (s *AlterRoleStmt) WithOptions(opts OptionList) *AlterRoleStmt {
	ret := *s
	ret.Options = opts
	return &ret
}

// CreateSchemaStmt is CREATE SCHEMA [IF NOT EXISTS] <name>. It is only
// produced internally to materialize schema dependencies.
type CreateSchemaStmt struct {
	Name string
}

func (*CreateSchemaStmt) StmtName() string { return "CREATE SCHEMA" }
