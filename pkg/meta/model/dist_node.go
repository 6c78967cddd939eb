package model

import (
	"github.com/hanfei1991/distddl/model"
)

// DistNode is a row of the node-membership table.
type DistNode struct {
	Model
	Host     string `json:"host" gorm:"column:host;type:varchar(255);not null;uniqueIndex:uidx_dist_node,priority:1"`
	Port     int    `json:"port" gorm:"column:port;not null;uniqueIndex:uidx_dist_node,priority:2"`
	IsActive bool   `json:"is-active" gorm:"column:is_active;not null;default:false"`
}

func (DistNode) TableName() string {
	return "dist_nodes"
}

// WorkerNode converts the row to its model form.
func (n *DistNode) WorkerNode() model.WorkerNode {
	return model.WorkerNode{
		ID:       model.NodeID(n.SeqID),
		Host:     n.Host,
		Port:     n.Port,
		IsActive: n.IsActive,
	}
}
