package meta

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hanfei1991/distddl/model"
	derrors "github.com/hanfei1991/distddl/pkg/errors"
	ormModel "github.com/hanfei1991/distddl/pkg/meta/model"
)

// The registry functions take the transaction of the command that changes the
// registry, so every change rolls back with that command.

// MarkObjectDistributed adds id to the registry. Marking an already marked
// identity is a no-op.
func MarkObjectDistributed(ctx context.Context, tx *gorm.DB, id model.ObjectIdentity) error {
	err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ormModel.NewDistObject(id)).Error
	if err != nil {
		return derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return nil
}

// UnmarkObjectDistributed removes id from the registry. Unmarking an absent
// identity is a no-op.
func UnmarkObjectDistributed(ctx context.Context, tx *gorm.DB, id model.ObjectIdentity) error {
	err := tx.WithContext(ctx).
		Where("object_class = ? AND object_id = ?", string(id.Class), id.ID).
		Delete(&ormModel.DistObject{}).Error
	if err != nil {
		return derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return nil
}

// IsObjectDistributed reports whether id is in the registry.
func IsObjectDistributed(ctx context.Context, tx *gorm.DB, id model.ObjectIdentity) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&ormModel.DistObject{}).
		Where("object_class = ? AND object_id = ?", string(id.Class), id.ID).
		Count(&count).Error
	if err != nil {
		return false, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}
	return count > 0, nil
}

// ListDistributedObjects returns all registry entries in the order they were
// marked.
func ListDistributedObjects(ctx context.Context, tx *gorm.DB) ([]model.ObjectIdentity, error) {
	var objects []*ormModel.DistObject
	err := tx.WithContext(ctx).Order("seq_id").Find(&objects).Error
	if err != nil {
		return nil, derrors.ErrMetaOpFail.Wrap(err).GenWithStackByArgs()
	}

	ret := make([]model.ObjectIdentity, 0, len(objects))
	for _, obj := range objects {
		ret = append(ret, obj.Identity())
	}
	return ret, nil
}
