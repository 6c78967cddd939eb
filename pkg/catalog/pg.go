package catalog

import (
	"context"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// PGCatalog reads the PostgreSQL system catalogs through the coordinator
// transaction.
type PGCatalog struct{}

// NewPGCatalog creates a PGCatalog.
func NewPGCatalog() *PGCatalog {
	return &PGCatalog{}
}

const (
	queryExtensionOID = `SELECT oid FROM pg_catalog.pg_extension WHERE extname = ?`
	querySchemaOID    = `SELECT oid FROM pg_catalog.pg_namespace WHERE nspname = ?`
	queryRoleOID      = `SELECT oid FROM pg_catalog.pg_roles WHERE rolname = ?`

	queryExtensionName = `SELECT extname FROM pg_catalog.pg_extension WHERE oid = ?`
	querySchemaName    = `SELECT nspname FROM pg_catalog.pg_namespace WHERE oid = ?`
	queryRoleName      = `SELECT rolname FROM pg_catalog.pg_roles WHERE oid = ?`

	queryDescribeExtension = `SELECT e.extname AS name, n.nspname AS schema, e.extversion AS version
FROM pg_catalog.pg_extension e JOIN pg_catalog.pg_namespace n ON n.oid = e.extnamespace
WHERE e.oid = ?`
	queryAvailableVersions = `SELECT version FROM pg_catalog.pg_available_extension_versions WHERE name = ?`
	queryDefaultVersion    = `SELECT default_version FROM pg_catalog.pg_available_extensions WHERE name = ?`
	queryExtensionSchema   = `SELECT extnamespace FROM pg_catalog.pg_extension WHERE oid = ?`
	queryRequiredExtension = `SELECT refobjid FROM pg_catalog.pg_depend
WHERE classid = 'pg_catalog.pg_extension'::regclass AND objid = ?
AND refclassid = 'pg_catalog.pg_extension'::regclass AND deptype = 'n'
ORDER BY refobjid`
	queryPassword  = `SELECT rolpassword FROM pg_catalog.pg_authid WHERE rolname = ?`
	queryListRoles = `SELECT rolname, rolsuper, rolcreatedb, rolcreaterole, rolinherit, rolcanlogin,
rolreplication, rolbypassrls, rolconnlimit, rolpassword, rolvaliduntil::text AS rolvaliduntil
FROM pg_catalog.pg_authid ORDER BY rolname`
)

type pgExtension struct {
	Name    string `gorm:"column:name"`
	Schema  string `gorm:"column:schema"`
	Version string `gorm:"column:version"`
}

type pgPassword struct {
	Password *string `gorm:"column:rolpassword"`
}

func oidQuery(class model.ObjectClass) (string, bool) {
	switch class {
	case model.ClassExtension:
		return queryExtensionOID, true
	case model.ClassSchema:
		return querySchemaOID, true
	case model.ClassRole:
		return queryRoleOID, true
	}
	return "", false
}

func nameQuery(class model.ObjectClass) (string, bool) {
	switch class {
	case model.ClassExtension:
		return queryExtensionName, true
	case model.ClassSchema:
		return querySchemaName, true
	case model.ClassRole:
		return queryRoleName, true
	}
	return "", false
}

func (c *PGCatalog) ResolveIdentity(ctx context.Context, txn *txnctx.Txn, class model.ObjectClass, name string) (model.ObjectIdentity, error) {
	query, ok := oidQuery(class)
	if !ok {
		return model.ObjectIdentity{}, derrors.ErrUnsupportedObjectClass.GenWithStackByArgs(class)
	}
	var oids []uint32
	if err := txn.DB.WithContext(ctx).Raw(query, name).Scan(&oids).Error; err != nil {
		return model.ObjectIdentity{}, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(oids) == 0 {
		return model.ObjectIdentity{}, derrors.ErrUnknownObject.GenWithStackByArgs(class, name)
	}
	return model.ObjectIdentity{Class: class, ID: oids[0]}, nil
}

func (c *PGCatalog) ObjectName(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) (string, error) {
	query, ok := nameQuery(id.Class)
	if !ok {
		return "", derrors.ErrUnsupportedObjectClass.GenWithStackByArgs(id.Class)
	}
	var names []string
	if err := txn.DB.WithContext(ctx).Raw(query, id.ID).Scan(&names).Error; err != nil {
		return "", derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(names) == 0 {
		return "", derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
	}
	return names[0], nil
}

func (c *PGCatalog) DescribeExtension(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) (*ExtensionInfo, error) {
	var rows []pgExtension
	if err := txn.DB.WithContext(ctx).Raw(queryDescribeExtension, id.ID).Scan(&rows).Error; err != nil {
		return nil, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(rows) == 0 {
		return nil, derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
	}
	return &ExtensionInfo{
		Identity: id,
		Name:     rows[0].Name,
		Schema:   rows[0].Schema,
		Version:  rows[0].Version,
	}, nil
}

func (c *PGCatalog) AvailableVersions(ctx context.Context, txn *txnctx.Txn, extension string) ([]string, error) {
	var versions []string
	if err := txn.DB.WithContext(ctx).Raw(queryAvailableVersions, extension).Scan(&versions).Error; err != nil {
		return nil, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	return versions, nil
}

func (c *PGCatalog) DefaultVersion(ctx context.Context, txn *txnctx.Txn, extension string) (string, error) {
	var versions []string
	if err := txn.DB.WithContext(ctx).Raw(queryDefaultVersion, extension).Scan(&versions).Error; err != nil {
		return "", derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(versions) == 0 {
		return "", derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassExtension, extension)
	}
	return versions[0], nil
}

// Dependencies returns the schema of an extension followed by the
// extensions it requires. Other classes have no supported dependencies.
func (c *PGCatalog) Dependencies(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) ([]model.ObjectIdentity, error) {
	if id.Class != model.ClassExtension {
		return nil, nil
	}
	db := txn.DB.WithContext(ctx)
	var schemas []uint32
	if err := db.Raw(queryExtensionSchema, id.ID).Scan(&schemas).Error; err != nil {
		return nil, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(schemas) == 0 {
		return nil, derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
	}
	var required []uint32
	if err := db.Raw(queryRequiredExtension, id.ID).Scan(&required).Error; err != nil {
		return nil, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	deps := []model.ObjectIdentity{{Class: model.ClassSchema, ID: schemas[0]}}
	for _, oid := range required {
		deps = append(deps, model.ObjectIdentity{Class: model.ClassExtension, ID: oid})
	}
	return deps, nil
}

func (c *PGCatalog) EncryptedPassword(ctx context.Context, txn *txnctx.Txn, role string) (string, bool, error) {
	var rows []pgPassword
	if err := txn.DB.WithContext(ctx).Raw(queryPassword, role).Scan(&rows).Error; err != nil {
		return "", false, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	if len(rows) == 0 {
		return "", false, derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassRole, role)
	}
	if rows[0].Password == nil {
		return "", false, nil
	}
	return *rows[0].Password, true, nil
}

type pgRole struct {
	Name        string  `gorm:"column:rolname"`
	Super       bool    `gorm:"column:rolsuper"`
	CreateDB    bool    `gorm:"column:rolcreatedb"`
	CreateRole  bool    `gorm:"column:rolcreaterole"`
	Inherit     bool    `gorm:"column:rolinherit"`
	CanLogin    bool    `gorm:"column:rolcanlogin"`
	Replication bool    `gorm:"column:rolreplication"`
	BypassRLS   bool    `gorm:"column:rolbypassrls"`
	ConnLimit   int64   `gorm:"column:rolconnlimit"`
	Password    *string `gorm:"column:rolpassword"`
	ValidUntil  *string `gorm:"column:rolvaliduntil"`
}

func (c *PGCatalog) ListRoles(ctx context.Context, txn *txnctx.Txn) ([]*RoleInfo, error) {
	var rows []pgRole
	if err := txn.DB.WithContext(ctx).Raw(queryListRoles).Scan(&rows).Error; err != nil {
		return nil, derrors.ErrCatalogOpFail.Wrap(err).GenWithStackByArgs()
	}
	ret := make([]*RoleInfo, 0, len(rows))
	for _, r := range rows {
		ret = append(ret, &RoleInfo{
			Name:              r.Name,
			Superuser:         r.Super,
			CreateDB:          r.CreateDB,
			CreateRole:        r.CreateRole,
			Inherit:           r.Inherit,
			CanLogin:          r.CanLogin,
			Replication:       r.Replication,
			BypassRLS:         r.BypassRLS,
			ConnectionLimit:   r.ConnLimit,
			EncryptedPassword: r.Password,
			ValidUntil:        r.ValidUntil,
		})
	}
	return ret, nil
}
