package model

import (
	"github.com/hanfei1991/distddl/model"
)

// DistObject is one entry of the distributed-object registry: an object that is
// expected to exist on every worker node.
type DistObject struct {
	Model
	ObjectClass string `json:"object-class" gorm:"column:object_class;type:varchar(64);not null;uniqueIndex:uidx_dist_object,priority:1"`
	ObjectID    uint32 `json:"object-id" gorm:"column:object_id;not null;uniqueIndex:uidx_dist_object,priority:2"`
}

func (DistObject) TableName() string {
	return "dist_objects"
}

// Identity returns the object identity the entry stands for.
func (o *DistObject) Identity() model.ObjectIdentity {
	return model.ObjectIdentity{
		Class: model.ObjectClass(o.ObjectClass),
		ID:    o.ObjectID,
	}
}

// NewDistObject creates a registry entry for id.
func NewDistObject(id model.ObjectIdentity) *DistObject {
	return &DistObject{
		ObjectClass: string(id.Class),
		ObjectID:    id.ID,
	}
}
