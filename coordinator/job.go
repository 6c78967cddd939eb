package coordinator

import (
	"github.com/hanfei1991/distddl/model"
	"github.com/hanfei1991/distddl/pkg/autoid"
)

var jobIDAllocator = autoid.NewUUIDAllocator()

// BuildJob wraps commands in the propagation markers and addresses them to
// targets.
func BuildJob(commands []string, targets []model.WorkerNode) *model.DDLJob {
	seq := make([]string, 0, len(commands)+2)
	seq = append(seq, model.DisableDDLPropagation)
	seq = append(seq, commands...)
	seq = append(seq, model.EnableDDLPropagation)
	return &model.DDLJob{
		ID:          jobIDAllocator.AllocID(),
		TargetNodes: append([]model.WorkerNode(nil), targets...),
		Commands:    seq,
	}
}
