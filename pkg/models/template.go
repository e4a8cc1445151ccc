// Package models defines the core domain models for graph-based workflow execution.
package models

import "time"

// TemplateStatus represents the lifecycle state of a workflow template.
type TemplateStatus string

const (
	TemplateStatusDraft    TemplateStatus = "draft"    // Editable, not executable
	TemplateStatusActive   TemplateStatus = "active"   // Executable
	TemplateStatusArchived TemplateStatus = "archived" // Historical, not executable
)

// WorkflowTemplate is a reusable DAG definition of nodes and edges. The engine
// only reads templates; it never mutates the definition during a run.
type WorkflowTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Status      TemplateStatus `json:"status"      validate:"required"`
	Definition  Definition     `json:"definition"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Counters maintained by the engine at execution completion.
	ExecutionCount int `json:"execution_count"`
	SuccessCount   int `json:"success_count"`
}

// IsExecutable reports whether executions may be started from this template.
func (t *WorkflowTemplate) IsExecutable() bool {
	return t.Status == TemplateStatusActive
}

// SuccessRate returns the percentage of successful executions.
func (t *WorkflowTemplate) SuccessRate() float64 {
	if t.ExecutionCount == 0 {
		return 0
	}

	return float64(t.SuccessCount) / float64(t.ExecutionCount) * 100
}
