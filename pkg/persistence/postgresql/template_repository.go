package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
)

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db *sql.DB
}

const templateColumns = `id, name, description, version, status, definition,
	created_by, created_at, updated_at, execution_count, success_count`

func (r *TemplateRepository) Templates(ctx context.Context, opts persistence.ListTemplatesOptions) ([]*models.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates WHERE 1=1`
	args := make([]any, 0, 4)

	if opts.Status != nil {
		args = append(args, string(*opts.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if opts.CreatedBy != "" {
		args = append(args, opts.CreatedBy)
		query += fmt.Sprintf(" AND created_by = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStorageError("Templates", "", err)
	}

	defer func() { _ = rows.Close() }()

	out := make([]*models.WorkflowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, persistence.NewStorageError("Templates", "", err)
		}

		out = append(out, template)
	}

	return out, rows.Err()
}

func (r *TemplateRepository) TemplateByID(ctx context.Context, id string) (*models.WorkflowTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM workflow_templates WHERE id = $1`, id)

	template, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStorageError("TemplateByID", id, persistence.ErrTemplateNotFound)
	}

	if err != nil {
		return nil, persistence.NewStorageError("TemplateByID", id, err)
	}

	return template, nil
}

func (r *TemplateRepository) SaveTemplate(ctx context.Context, template *models.WorkflowTemplate) error {
	definition, err := json.Marshal(template.Definition)
	if err != nil {
		return persistence.NewStorageError("SaveTemplate", template.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_templates (
			id, name, description, version, status, definition,
			created_by, created_at, updated_at, execution_count, success_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at,
			execution_count = EXCLUDED.execution_count,
			success_count = EXCLUDED.success_count
	`,
		template.ID, template.Name, template.Description, template.Version,
		string(template.Status), definition, template.CreatedBy,
		template.CreatedAt, template.UpdatedAt,
		template.ExecutionCount, template.SuccessCount,
	)
	if err != nil {
		return persistence.NewStorageError("SaveTemplate", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) DeleteTemplate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_templates WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStorageError("DeleteTemplate", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStorageError("DeleteTemplate", id, persistence.ErrTemplateNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*models.WorkflowTemplate, error) {
	var (
		template   models.WorkflowTemplate
		status     string
		definition []byte
	)

	err := row.Scan(
		&template.ID, &template.Name, &template.Description, &template.Version,
		&status, &definition, &template.CreatedBy,
		&template.CreatedAt, &template.UpdatedAt,
		&template.ExecutionCount, &template.SuccessCount,
	)
	if err != nil {
		return nil, err
	}

	template.Status = models.TemplateStatus(status)

	if len(definition) > 0 {
		if err := json.Unmarshal(definition, &template.Definition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
		}
	}

	return &template, nil
}
