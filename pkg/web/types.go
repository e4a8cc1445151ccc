// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/docuflow/docuflow/pkg/models"

// CreateTemplateRequest represents the request body for creating a template.
type CreateTemplateRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Definition  map[string]any `json:"definition"  validate:"required"`
	CreatedBy   string         `json:"created_by"`
}

// UpdateTemplateRequest represents the request body for updating a template.
// All fields are optional to support partial updates.
type UpdateTemplateRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Definition  map[string]any `json:"definition,omitempty"`
}

// ExecuteRequest represents the request body for starting an execution.
type ExecuteRequest struct {
	InputData map[string]any  `json:"input_data"`
	Priority  models.Priority `json:"priority"   validate:"omitempty,oneof=low normal high urgent"`
	CreatedBy string          `json:"created_by"`
}

// CancelRequest carries the optional actor and reason of a cancellation.
type CancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

// ResumeRequest carries the optional actor of a resume.
type ResumeRequest struct {
	ResumedBy string `json:"resumed_by"`
}

// RetryRequest carries the optional actor of a retry.
type RetryRequest struct {
	CreatedBy string `json:"created_by"`
}

// CreateVariableRequest represents the request body for creating a variable.
type CreateVariableRequest struct {
	Name        string               `json:"name"         validate:"required,min=1"`
	Description string               `json:"description"`
	Scope       models.VariableScope `json:"scope"        validate:"required,oneof=global template execution"`
	Type        models.VariableType  `json:"type"         validate:"omitempty,oneof=string number boolean json"`
	Value       any                  `json:"value"`
	TemplateID  string               `json:"template_id"`
	ExecutionID string               `json:"execution_id"`
	Encrypted   bool                 `json:"encrypted"`
	CreatedBy   string               `json:"created_by"`
}

// UpdateVariableRequest represents the request body for updating a variable.
type UpdateVariableRequest struct {
	Description *string `json:"description,omitempty"`
	Value       any     `json:"value,omitempty"`
}

// StatisticsResponse aggregates template-level execution counters.
type StatisticsResponse struct {
	TemplateID     string  `json:"template_id"`
	ExecutionCount int     `json:"execution_count"`
	SuccessCount   int     `json:"success_count"`
	SuccessRate    float64 `json:"success_rate"`
}
