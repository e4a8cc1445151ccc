package models

import "time"

// NodeStatus defines the possible states of a node execution record.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// NodeExecution records one node visit during a workflow execution.
// Unique per (execution, node id).
type NodeExecution struct {
	ID          string     `json:"id"`
	ExecutionID string     `json:"execution_id"`
	NodeID      string     `json:"node_id"`
	NodeType    string     `json:"node_type"`
	NodeName    string     `json:"node_name"`
	Status      NodeStatus `json:"status"`

	InputData  map[string]any `json:"input_data,omitempty"`
	OutputData map[string]any `json:"output_data,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Duration returns how long the node ran, or zero if it never started.
func (n *NodeExecution) Duration() time.Duration {
	if n.StartedAt == nil {
		return 0
	}

	end := time.Now()
	if n.CompletedAt != nil {
		end = *n.CompletedAt
	}

	return end.Sub(*n.StartedAt)
}
