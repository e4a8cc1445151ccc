// Package persistence provides the data storage abstraction for templates,
// executions, node records and variables.
package persistence

import (
	"context"

	"github.com/docuflow/docuflow/pkg/models"
)

// ListTemplatesOptions filters and paginates template listings.
type ListTemplatesOptions struct {
	Status    *models.TemplateStatus
	CreatedBy string
	Limit     int
	Offset    int
}

// ListExecutionsOptions filters and paginates execution listings.
type ListExecutionsOptions struct {
	TemplateID string
	Status     *models.ExecutionStatus
	CreatedBy  string
	Limit      int
	Offset     int
}

// TemplateRepository stores workflow templates.
type TemplateRepository interface {
	Templates(ctx context.Context, opts ListTemplatesOptions) ([]*models.WorkflowTemplate, error)
	TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error)
	SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// ExecutionRepository stores workflow executions.
type ExecutionRepository interface {
	Executions(ctx context.Context, opts ListExecutionsOptions) ([]*models.WorkflowExecution, error)
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error
}

// NodeExecutionRepository stores the per-node records of a run.
type NodeExecutionRepository interface {
	NodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error)
	SaveNodeExecution(ctx context.Context, record *models.NodeExecution) error
}

// VariableRepository stores scoped workflow variables.
type VariableRepository interface {
	Variables(ctx context.Context, scope models.VariableScope, scopeID string) ([]*models.WorkflowVariable, error)
	VariableByID(ctx context.Context, id string) (*models.WorkflowVariable, error)
	SaveVariable(ctx context.Context, variable *models.WorkflowVariable) error
	DeleteVariable(ctx context.Context, id string) error
}

// Persistence aggregates the repositories behind one connection lifecycle.
type Persistence interface {
	TemplateRepository() TemplateRepository
	ExecutionRepository() ExecutionRepository
	NodeExecutionRepository() NodeExecutionRepository
	VariableRepository() VariableRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
