package txnctx

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/hanfei1991/distddl/model"
)

// MultiShardModifyMode decides how many connections a transaction may open to
// one worker.
type MultiShardModifyMode int

const (
	ParallelMode MultiShardModifyMode = iota
	// SequentialMode restricts the transaction to one connection per worker.
	SequentialMode
)

func (m MultiShardModifyMode) String() string {
	if m == SequentialMode {
		return "sequential"
	}
	return "parallel"
}

// Settings are the session level switches visible to every phase of the
// protocol.
type Settings struct {
	// EnableDDLPropagation is turned off by model.DisableDDLPropagation on
	// nodes that replay a propagated command.
	EnableDDLPropagation       bool
	EnableDependencyCreation   bool
	EnableAlterRolePropagation bool
	MultiShardModifyMode       MultiShardModifyMode
	// SearchPath is the ordered schema search path, "$user" stands for
	// CurrentUser.
	SearchPath  []string
	CurrentUser string
}

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{
		EnableDDLPropagation:     true,
		EnableDependencyCreation: true,
		MultiShardModifyMode:     ParallelMode,
		SearchPath:               []string{"$user", "public"},
	}
}

// Remote executes DDL jobs over the transaction's worker connections.
type Remote interface {
	Execute(ctx context.Context, job *model.DDLJob) error
}

// Txn is the state of one coordinator transaction. It is threaded explicitly
// through every component instead of living in globals, and it is used by a
// single goroutine.
type Txn struct {
	Settings

	// DB is the gorm transaction every catalog and registry access goes through.
	DB *gorm.DB
	// Remote carries commands to the workers within this transaction.
	Remote Remote
	// Role is the role of the local node.
	Role model.NodeRole
	// MultiStatement is set when the command runs inside an explicit
	// transaction block.
	MultiStatement bool

	parallelAccessed bool
	lockedWorkers    []model.WorkerNode
	nodesLocked      bool
}

// New creates a Txn on top of db.
func New(db *gorm.DB, role model.NodeRole, settings Settings) *Txn {
	settings.SearchPath = append([]string(nil), settings.SearchPath...)
	return &Txn{
		Settings: settings,
		DB:       db,
		Role:     role,
	}
}

// RecordParallelAccess is called by executors that opened more than one
// connection to a worker within this transaction.
func (t *Txn) RecordParallelAccess() {
	t.parallelAccessed = true
}

// ParallelAccessed reports whether a parallel multi-connection access has
// happened in this transaction.
func (t *Txn) ParallelAccessed() bool {
	return t.parallelAccessed
}

// IsSequential reports whether the transaction uses one connection per worker.
func (t *Txn) IsSequential() bool {
	return t.MultiShardModifyMode == SequentialMode
}

// CanSwitchToSequential reports whether the transaction is, or may still be
// put, in sequential mode.
func (t *Txn) CanSwitchToSequential() bool {
	return t.IsSequential() || !t.parallelAccessed
}

// SwitchToSequential puts the transaction in sequential mode for the rest of
// its lifetime.
func (t *Txn) SwitchToSequential() {
	t.MultiShardModifyMode = SequentialMode
}

// SetLockedWorkers remembers the active workers read under the node-table lock.
func (t *Txn) SetLockedWorkers(workers []model.WorkerNode) {
	t.lockedWorkers = workers
	t.nodesLocked = true
}

// LockedWorkers returns the workers remembered by SetLockedWorkers.
func (t *Txn) LockedWorkers() ([]model.WorkerNode, bool) {
	return t.lockedWorkers, t.nodesLocked
}

// ObserveCommand applies the propagation markers to the session. It returns
// true when cmd was a marker.
func (t *Txn) ObserveCommand(cmd string) bool {
	switch strings.TrimSpace(cmd) {
	case model.DisableDDLPropagation:
		t.EnableDDLPropagation = false
		return true
	case model.EnableDDLPropagation:
		t.EnableDDLPropagation = true
		return true
	}
	return false
}
