package file

import (
	"context"
	"sort"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
)

const defaultPageSize = 20

// TemplateRepository stores templates as JSON files.
type TemplateRepository struct {
	store *store
}

func (r *TemplateRepository) Templates(_ context.Context, opts persistence.ListTemplatesOptions) ([]*models.WorkflowTemplate, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, persistence.NewStorageError("Templates", "", err)
	}

	all := make([]*models.WorkflowTemplate, 0, len(ids))

	for _, id := range ids {
		var template models.WorkflowTemplate

		found, err := r.store.read(id, &template)
		if err != nil {
			return nil, persistence.NewStorageError("Templates", id, err)
		}

		if !found {
			continue
		}

		if opts.Status != nil && template.Status != *opts.Status {
			continue
		}

		if opts.CreatedBy != "" && template.CreatedBy != opts.CreatedBy {
			continue
		}

		all = append(all, &template)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, opts.Offset, opts.Limit), nil
}

func (r *TemplateRepository) TemplateByID(_ context.Context, id string) (*models.WorkflowTemplate, error) {
	var template models.WorkflowTemplate

	found, err := r.store.read(id, &template)
	if err != nil {
		return nil, persistence.NewStorageError("TemplateByID", id, err)
	}

	if !found {
		return nil, persistence.NewStorageError("TemplateByID", id, persistence.ErrTemplateNotFound)
	}

	return &template, nil
}

func (r *TemplateRepository) SaveTemplate(_ context.Context, template *models.WorkflowTemplate) error {
	if err := r.store.write(template.ID, template); err != nil {
		return persistence.NewStorageError("SaveTemplate", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) DeleteTemplate(_ context.Context, id string) error {
	removed, err := r.store.remove(id)
	if err != nil {
		return persistence.NewStorageError("DeleteTemplate", id, err)
	}

	if !removed {
		return persistence.NewStorageError("DeleteTemplate", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

// ExecutionRepository stores executions as JSON files.
type ExecutionRepository struct {
	store *store
}

func (r *ExecutionRepository) Executions(_ context.Context, opts persistence.ListExecutionsOptions) ([]*models.WorkflowExecution, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, persistence.NewStorageError("Executions", "", err)
	}

	all := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		var execution models.WorkflowExecution

		found, err := r.store.read(id, &execution)
		if err != nil {
			return nil, persistence.NewStorageError("Executions", id, err)
		}

		if !found {
			continue
		}

		if opts.TemplateID != "" && execution.TemplateID != opts.TemplateID {
			continue
		}

		if opts.Status != nil && execution.Status != *opts.Status {
			continue
		}

		if opts.CreatedBy != "" && execution.CreatedBy != opts.CreatedBy {
			continue
		}

		all = append(all, &execution)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	return paginate(all, opts.Offset, opts.Limit), nil
}

func (r *ExecutionRepository) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	found, err := r.store.read(id, &execution)
	if err != nil {
		return nil, persistence.NewStorageError("ExecutionByID", id, err)
	}

	if !found {
		return nil, persistence.NewStorageError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	return &execution, nil
}

func (r *ExecutionRepository) SaveExecution(_ context.Context, execution *models.WorkflowExecution) error {
	if err := r.store.write(execution.ID, execution); err != nil {
		return persistence.NewStorageError("SaveExecution", execution.ID, err)
	}

	return nil
}

// NodeExecutionRepository stores per-node records grouped by execution.
type NodeExecutionRepository struct {
	store *store
}

// nodeRecordFile is the on-disk grouping: one file per execution holding all
// of its node records, so the common read (timeline of one run) is one file.
type nodeRecordFile struct {
	Records []*models.NodeExecution `json:"records"`
}

func (r *NodeExecutionRepository) NodeExecutions(_ context.Context, executionID string) ([]*models.NodeExecution, error) {
	var file nodeRecordFile

	found, err := r.store.read(executionID, &file)
	if err != nil {
		return nil, persistence.NewStorageError("NodeExecutions", executionID, err)
	}

	if !found {
		return []*models.NodeExecution{}, nil
	}

	return file.Records, nil
}

func (r *NodeExecutionRepository) SaveNodeExecution(_ context.Context, record *models.NodeExecution) error {
	var file nodeRecordFile

	if _, err := r.store.read(record.ExecutionID, &file); err != nil {
		return persistence.NewStorageError("SaveNodeExecution", record.ID, err)
	}

	replaced := false

	for i, existing := range file.Records {
		if existing.ID == record.ID {
			file.Records[i] = record
			replaced = true

			break
		}
	}

	if !replaced {
		file.Records = append(file.Records, record)
	}

	if err := r.store.write(record.ExecutionID, &file); err != nil {
		return persistence.NewStorageError("SaveNodeExecution", record.ID, err)
	}

	return nil
}

// VariableRepository stores workflow variables as JSON files.
type VariableRepository struct {
	store *store
}

func (r *VariableRepository) Variables(_ context.Context, scope models.VariableScope, scopeID string) ([]*models.WorkflowVariable, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, persistence.NewStorageError("Variables", "", err)
	}

	out := make([]*models.WorkflowVariable, 0)

	for _, id := range ids {
		var variable models.WorkflowVariable

		found, err := r.store.read(id, &variable)
		if err != nil {
			return nil, persistence.NewStorageError("Variables", id, err)
		}

		if !found || variable.Scope != scope {
			continue
		}

		switch scope {
		case models.ScopeTemplate:
			if variable.TemplateID != scopeID {
				continue
			}
		case models.ScopeExecution:
			if variable.ExecutionID != scopeID {
				continue
			}
		case models.ScopeGlobal:
		}

		out = append(out, &variable)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (r *VariableRepository) VariableByID(_ context.Context, id string) (*models.WorkflowVariable, error) {
	var variable models.WorkflowVariable

	found, err := r.store.read(id, &variable)
	if err != nil {
		return nil, persistence.NewStorageError("VariableByID", id, err)
	}

	if !found {
		return nil, persistence.NewStorageError("VariableByID", id, persistence.ErrVariableNotFound)
	}

	return &variable, nil
}

func (r *VariableRepository) SaveVariable(_ context.Context, variable *models.WorkflowVariable) error {
	if err := r.store.write(variable.ID, variable); err != nil {
		return persistence.NewStorageError("SaveVariable", variable.ID, err)
	}

	return nil
}

func (r *VariableRepository) DeleteVariable(_ context.Context, id string) error {
	removed, err := r.store.remove(id)
	if err != nil {
		return persistence.NewStorageError("DeleteVariable", id, err)
	}

	if !removed {
		return persistence.NewStorageError("DeleteVariable", id, persistence.ErrVariableNotFound)
	}

	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if limit <= 0 || limit > 100 {
		limit = defaultPageSize
	}

	if offset >= len(items) {
		return []T{}
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}

	return items[offset:end]
}
