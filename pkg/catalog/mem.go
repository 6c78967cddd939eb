package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/autoid"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// Builtin schemas exist on every node before any command runs.
const (
	PgCatalogSchemaID uint32 = 11
	PublicSchemaID    uint32 = 2200
)

type memExtension struct {
	id       uint32
	name     string
	schemaID uint32
	version  string
	requires []uint32
}

// MemCatalog is an in-memory Catalog. Besides the read side it offers the
// mutations a local apply performs, which makes it usable as the catalog of
// a node in tests and dry runs.
type MemCatalog struct {
	mu sync.RWMutex

	ids        *autoid.ObjectIDAllocator
	schemas    map[string]uint32
	extensions map[string]*memExtension
	roles      map[string]*RoleInfo
	roleIDs    map[string]uint32
	// available versions by extension name, default version first
	available map[string][]string
}

// NewMemCatalog creates a catalog holding the builtin schemas.
func NewMemCatalog() *MemCatalog {
	return &MemCatalog{
		ids: autoid.NewObjectIDAllocator(),
		schemas: map[string]uint32{
			"pg_catalog": PgCatalogSchemaID,
			"public":     PublicSchemaID,
		},
		extensions: make(map[string]*memExtension),
		roles:      make(map[string]*RoleInfo),
		roleIDs:    make(map[string]uint32),
		available:  make(map[string][]string),
	}
}

// AddAvailableExtension makes extension installable in versions. The first
// version is the default one.
func (c *MemCatalog) AddAvailableExtension(extension string, versions ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available[extension] = append([]string(nil), versions...)
}

// CreateSchema creates schema if it does not exist and returns its identity.
func (c *MemCatalog) CreateSchema(schema string) model.ObjectIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.schemas[schema]
	if !ok {
		id = c.ids.AllocID()
		c.schemas[schema] = id
	}
	return model.ObjectIdentity{Class: model.ClassSchema, ID: id}
}

// CreateExtension installs extension in schema. requires names extensions
// that must already be installed.
func (c *MemCatalog) CreateExtension(extension, schema, version string, requires ...string) (model.ObjectIdentity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ext, ok := c.extensions[extension]; ok {
		return model.ObjectIdentity{Class: model.ClassExtension, ID: ext.id}, nil
	}
	schemaID, ok := c.schemas[schema]
	if !ok {
		return model.ObjectIdentity{}, derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassSchema, schema)
	}
	ext := &memExtension{
		id:       c.ids.AllocID(),
		name:     extension,
		schemaID: schemaID,
		version:  version,
	}
	for _, name := range requires {
		req, ok := c.extensions[name]
		if !ok {
			return model.ObjectIdentity{}, derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassExtension, name)
		}
		ext.requires = append(ext.requires, req.id)
	}
	c.extensions[extension] = ext
	return model.ObjectIdentity{Class: model.ClassExtension, ID: ext.id}, nil
}

// DropExtension removes extension, missing extensions are ignored.
func (c *MemCatalog) DropExtension(extension string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.extensions, extension)
}

// SetExtensionSchema moves extension to schema.
func (c *MemCatalog) SetExtensionSchema(extension, schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ext, ok := c.extensions[extension]
	if !ok {
		return derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassExtension, extension)
	}
	schemaID, ok := c.schemas[schema]
	if !ok {
		return derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassSchema, schema)
	}
	ext.schemaID = schemaID
	return nil
}

// UpdateExtension changes the installed version of extension.
func (c *MemCatalog) UpdateExtension(extension, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ext, ok := c.extensions[extension]
	if !ok {
		return derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassExtension, extension)
	}
	ext.version = version
	return nil
}

// CreateRole adds or replaces role.
func (c *MemCatalog) CreateRole(role *RoleInfo) model.ObjectIdentity {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.roleIDs[role.Name]
	if !ok {
		id = c.ids.AllocID()
		c.roleIDs[role.Name] = id
	}
	copied := *role
	c.roles[role.Name] = &copied
	return model.ObjectIdentity{Class: model.ClassRole, ID: id}
}

func (c *MemCatalog) ResolveIdentity(_ context.Context, _ *txnctx.Txn, class model.ObjectClass, name string) (model.ObjectIdentity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var (
		id uint32
		ok bool
	)
	switch class {
	case model.ClassExtension:
		var ext *memExtension
		if ext, ok = c.extensions[name]; ok {
			id = ext.id
		}
	case model.ClassSchema:
		id, ok = c.schemas[name]
	case model.ClassRole:
		id, ok = c.roleIDs[name]
	}
	if !ok {
		return model.ObjectIdentity{}, derrors.ErrUnknownObject.GenWithStackByArgs(class, name)
	}
	return model.ObjectIdentity{Class: class, ID: id}, nil
}

func (c *MemCatalog) ObjectName(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name, ok := c.nameLocked(id); ok {
		return name, nil
	}
	return "", derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
}

func (c *MemCatalog) nameLocked(id model.ObjectIdentity) (string, bool) {
	var candidates map[string]uint32
	switch id.Class {
	case model.ClassExtension:
		for name, ext := range c.extensions {
			if ext.id == id.ID {
				return name, true
			}
		}
		return "", false
	case model.ClassSchema:
		candidates = c.schemas
	case model.ClassRole:
		candidates = c.roleIDs
	}
	for name, oid := range candidates {
		if oid == id.ID {
			return name, true
		}
	}
	return "", false
}

func (c *MemCatalog) DescribeExtension(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) (*ExtensionInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ext := range c.extensions {
		if ext.id != id.ID || id.Class != model.ClassExtension {
			continue
		}
		schema, _ := c.nameLocked(model.ObjectIdentity{Class: model.ClassSchema, ID: ext.schemaID})
		return &ExtensionInfo{
			Identity: id,
			Name:     ext.name,
			Schema:   schema,
			Version:  ext.version,
		}, nil
	}
	return nil, derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
}

func (c *MemCatalog) AvailableVersions(_ context.Context, _ *txnctx.Txn, extension string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.available[extension]...), nil
}

func (c *MemCatalog) DefaultVersion(_ context.Context, _ *txnctx.Txn, extension string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	versions := c.available[extension]
	if len(versions) == 0 {
		return "", derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassExtension, extension)
	}
	return versions[0], nil
}

func (c *MemCatalog) Dependencies(_ context.Context, _ *txnctx.Txn, id model.ObjectIdentity) ([]model.ObjectIdentity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id.Class != model.ClassExtension {
		return nil, nil
	}
	for _, ext := range c.extensions {
		if ext.id != id.ID {
			continue
		}
		deps := []model.ObjectIdentity{{Class: model.ClassSchema, ID: ext.schemaID}}
		for _, req := range ext.requires {
			deps = append(deps, model.ObjectIdentity{Class: model.ClassExtension, ID: req})
		}
		return deps, nil
	}
	return nil, derrors.ErrUnknownObject.GenWithStackByArgs(id.Class, id.String())
}

func (c *MemCatalog) EncryptedPassword(_ context.Context, _ *txnctx.Txn, role string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.roles[role]
	if !ok {
		return "", false, derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassRole, role)
	}
	if info.EncryptedPassword == nil {
		return "", false, nil
	}
	return *info.EncryptedPassword, true, nil
}

func (c *MemCatalog) ListRoles(_ context.Context, _ *txnctx.Txn) ([]*RoleInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := make([]*RoleInfo, 0, len(c.roles))
	for _, info := range c.roles {
		copied := *info
		ret = append(ret, &copied)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret, nil
}

// Apply performs the local effect of stmt. Missing schema and version options
// fall back to public and the default version.
func (c *MemCatalog) Apply(stmt model.Statement) error {
	switch s := stmt.(type) {
	case *model.CreateObjectStmt:
		if s.Kind == model.KindSchema {
			c.CreateSchema(s.Name)
			return nil
		}
		schema := s.Options.GetString(model.OptionSchema)
		if schema == "" {
			schema = "public"
		}
		version := s.Options.GetString(model.OptionNewVersion)
		if version == "" {
			var err error
			if version, err = c.DefaultVersion(context.Background(), nil, s.Name); err != nil {
				return err
			}
		}
		_, err := c.CreateExtension(s.Name, schema, version)
		return err
	case *model.AlterObjectVersionStmt:
		version := s.Options.GetString(model.OptionNewVersion)
		if version == "" {
			var err error
			if version, err = c.DefaultVersion(context.Background(), nil, s.Name); err != nil {
				return err
			}
		}
		return c.UpdateExtension(s.Name, version)
	case *model.AlterObjectSchemaStmt:
		return c.SetExtensionSchema(s.Name, s.NewSchema)
	case *model.DropObjectsStmt:
		for _, name := range s.Names {
			c.DropExtension(name)
		}
		return nil
	case *model.CreateSchemaStmt:
		c.CreateSchema(s.Name)
		return nil
	case *model.AlterRoleStmt:
		c.mu.RLock()
		_, ok := c.roles[s.RoleName]
		c.mu.RUnlock()
		if !ok {
			return derrors.ErrUnknownObject.GenWithStackByArgs(model.ClassRole, s.RoleName)
		}
		return nil
	}
	return derrors.ErrUnsupportedStatement.GenWithStackByArgs(stmt)
}
