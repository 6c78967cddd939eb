package model

import (
	"encoding/json"
	"fmt"
)

// NodeRole is the role a node plays in the cluster.
type NodeRole int

const (
	// RoleCoordinator is the node authorized to originate propagating commands.
	RoleCoordinator NodeRole = iota
	// RoleWorker receives propagated commands and applies them locally.
	RoleWorker
)

func (r NodeRole) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleWorker:
		return "worker"
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

type NodeID int32

// WorkerNode describes a worker node of the cluster.
type WorkerNode struct {
	ID       NodeID `json:"id"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	IsActive bool   `json:"is-active"`
}

// Addr returns host:port of the node.
func (n WorkerNode) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

func (n WorkerNode) ToJSON() (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
