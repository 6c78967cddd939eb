package catalog

import (
	"context"

	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/txnctx"
)

// ExtensionInfo is the catalog state of an installed extension.
type ExtensionInfo struct {
	Identity model.ObjectIdentity
	Name     string
	Schema   string
	Version  string
}

// RoleInfo is the catalog state of a role.
type RoleInfo struct {
	Name            string
	Superuser       bool
	CreateDB        bool
	CreateRole      bool
	Inherit         bool
	CanLogin        bool
	Replication     bool
	BypassRLS       bool
	ConnectionLimit int64
	// EncryptedPassword is nil for roles without password.
	EncryptedPassword *string
	// ValidUntil is nil when the password never expires.
	ValidUntil *string
}

// Catalog is the read side of the local catalog. Every call runs inside the
// transaction of txn, so it sees the effects of the local apply.
type Catalog interface {
	// ResolveIdentity returns errors.ErrUnknownObject when no object of class
	// is named name.
	ResolveIdentity(ctx context.Context, txn *txnctx.Txn, class model.ObjectClass, name string) (model.ObjectIdentity, error)
	// ObjectName returns the name of id.
	ObjectName(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) (string, error)
	// DescribeExtension returns the installed state of the extension id.
	DescribeExtension(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) (*ExtensionInfo, error)
	// AvailableVersions lists the versions of extension that can be installed
	// on this node. It is empty for unknown extensions.
	AvailableVersions(ctx context.Context, txn *txnctx.Txn, extension string) ([]string, error)
	// DefaultVersion returns the version installed when none is requested.
	DefaultVersion(ctx context.Context, txn *txnctx.Txn, extension string) (string, error)
	// Dependencies returns the objects id directly depends on.
	Dependencies(ctx context.Context, txn *txnctx.Txn, id model.ObjectIdentity) ([]model.ObjectIdentity, error)
	// EncryptedPassword returns the stored password of role, ok is false when
	// the role has none.
	EncryptedPassword(ctx context.Context, txn *txnctx.Txn, role string) (password string, ok bool, err error)
	// ListRoles returns every role ordered by name.
	ListRoles(ctx context.Context, txn *txnctx.Txn) ([]*RoleInfo, error)
}
