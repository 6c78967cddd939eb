package model

// Markers bracketing every command sequence sent to workers. A worker that runs
// the payload between them has propagation turned off, so it never forwards it again.
const (
	DisableDDLPropagation = "SET distddl.enable_ddl_propagation TO 'off'"
	EnableDDLPropagation  = "SET distddl.enable_ddl_propagation TO 'on'"
)

// DDLJob is a command sequence addressed to a set of worker nodes. It is built
// once, handed to the transport once and never persisted.
type DDLJob struct {
	ID          string
	TargetNodes []WorkerNode
	// Commands always starts with DisableDDLPropagation and ends with
	// EnableDDLPropagation.
	Commands []string
}

// Payload returns the commands between the propagation markers.
func (j *DDLJob) Payload() []string {
	if len(j.Commands) < 2 {
		return nil
	}
	return j.Commands[1 : len(j.Commands)-1]
}
