package models

import "time"

// ExecutionStatus is the state machine of a workflow execution:
// pending -> running -> {completed, failed, cancelled}, with running <-> paused
// as a side transition.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusPaused    ExecutionStatus = "paused"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Priority orders executions competing for worker slots.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// WorkflowExecution is one instantiation of a template against concrete input.
// It is mutated only by the engine goroutine owning the run; pause and cancel
// requests are applied through the engine's in-flight table.
type WorkflowExecution struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"template_id"`
	Status     ExecutionStatus `json:"status"`
	Priority   Priority        `json:"priority"`

	InputData  map[string]any `json:"input_data,omitempty"`
	OutputData any            `json:"output_data,omitempty"`
	Context    map[string]any `json:"context,omitempty"`

	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`
	MaxRetries   int    `json:"max_retries"`
}

// IsFinished reports whether the execution reached a terminal status.
func (e *WorkflowExecution) IsFinished() bool {
	switch e.Status {
	case ExecutionStatusCompleted, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// CanRetry reports whether the retry operation may create a new execution
// from this one. Retry never re-runs a failed node in place.
func (e *WorkflowExecution) CanRetry() bool {
	return e.Status == ExecutionStatusFailed && e.RetryCount < e.MaxRetries
}

// Duration returns the wall-clock runtime, or zero if the execution never started.
func (e *WorkflowExecution) Duration() time.Duration {
	if e.StartedAt == nil {
		return 0
	}

	end := time.Now()
	if e.CompletedAt != nil {
		end = *e.CompletedAt
	}

	return end.Sub(*e.StartedAt)
}
