package meta

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	ormModel "github.com/hanfei1991/distddl/pkg/meta/model"
)

// LockNodesShared takes a shared row lock on every row of the node-membership
// table until the end of tx and returns the active workers. A node cannot be
// activated while the lock is held, so every active worker either receives
// the command of tx or re-derives it when it gets activated later.
func LockNodesShared(ctx context.Context, tx *gorm.DB) ([]model.WorkerNode, error) {
	var nodes []*ormModel.DistNode
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Order("seq_id").
		Find(&nodes).Error
	if err != nil {
		return nil, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return activeOnly(nodes), nil
}

// ActiveWorkers returns the active workers without locking.
func ActiveWorkers(ctx context.Context, tx *gorm.DB) ([]model.WorkerNode, error) {
	var nodes []*ormModel.DistNode
	err := tx.WithContext(ctx).
		Where("is_active = ?", true).
		Order("seq_id").
		Find(&nodes).Error
	if err != nil {
		return nil, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return activeOnly(nodes), nil
}

// ListNodes returns every node of the membership table.
func ListNodes(ctx context.Context, tx *gorm.DB) ([]model.WorkerNode, error) {
	var nodes []*ormModel.DistNode
	if err := tx.WithContext(ctx).Order("seq_id").Find(&nodes).Error; err != nil {
		return nil, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	ret := make([]model.WorkerNode, 0, len(nodes))
	for _, n := range nodes {
		ret = append(ret, n.WorkerNode())
	}
	return ret, nil
}

// AddNode registers host:port as an inactive node, or returns the existing
// row. Nodes only become active through SetNodeActive.
func AddNode(ctx context.Context, tx *gorm.DB, host string, port int) (model.WorkerNode, error) {
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ormModel.DistNode{Host: host, Port: port}).Error
	if err != nil {
		return model.WorkerNode{}, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}

	var node ormModel.DistNode
	err = tx.WithContext(ctx).Where("host = ? AND port = ?", host, port).First(&node).Error
	if err != nil {
		return model.WorkerNode{}, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return node.WorkerNode(), nil
}

// LockNodeExclusive locks the row of host:port for update until the end of tx.
// It waits for every transaction holding LockNodesShared.
func LockNodeExclusive(ctx context.Context, tx *gorm.DB, host string, port int) (model.WorkerNode, error) {
	var node ormModel.DistNode
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("host = ? AND port = ?", host, port).
		First(&node).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return model.WorkerNode{}, derrors.ErrNodeNotFound.GenWithStackByArgs(host, port)
		}
		return model.WorkerNode{}, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return node.WorkerNode(), nil
}

// SetNodeActive flips the active flag of the node id.
func SetNodeActive(ctx context.Context, tx *gorm.DB, id model.NodeID, active bool) error {
	res := tx.WithContext(ctx).
		Model(&ormModel.DistNode{}).
		Where("seq_id = ?", uint(id)).
		Update("is_active", active)
	if res.Error != nil {
		return derrors.ErrMetaOpFail.Wrap(res.Error).GenWithStackByArgs()
	}
	return nil
}

func activeOnly(nodes []*ormModel.DistNode) []model.WorkerNode {
	ret := make([]model.WorkerNode, 0, len(nodes))
	for _, n := range nodes {
		if n.IsActive {
			ret = append(ret, n.WorkerNode())
		}
	}
	return ret
}
