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

// ExecutionRepository handles execution-related database operations.
type ExecutionRepository struct {
	db *sql.DB
}

const executionColumns = `id, template_id, status, priority, input_data, output_data,
	context, created_by, created_at, started_at, completed_at,
	error_message, retry_count, max_retries`

func (r *ExecutionRepository) Executions(ctx context.Context, opts persistence.ListExecutionsOptions) ([]*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE 1=1`
	args := make([]any, 0, 5)

	if opts.TemplateID != "" {
		args = append(args, opts.TemplateID)
		query += fmt.Sprintf(" AND template_id = $%d", len(args))
	}

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
		return nil, persistence.NewStorageError("Executions", "", err)
	}

	defer func() { _ = rows.Close() }()

	out := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewStorageError("Executions", "", err)
		}

		out = append(out, execution)
	}

	return out, rows.Err()
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+executionColumns+` FROM workflow_executions WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStorageError("ExecutionByID", id, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewStorageError("ExecutionByID", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) SaveExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	inputData, err := json.Marshal(execution.InputData)
	if err != nil {
		return persistence.NewStorageError("SaveExecution", execution.ID, err)
	}

	outputData, err := json.Marshal(execution.OutputData)
	if err != nil {
		return persistence.NewStorageError("SaveExecution", execution.ID, err)
	}

	contextData, err := json.Marshal(execution.Context)
	if err != nil {
		return persistence.NewStorageError("SaveExecution", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_executions (
			id, template_id, status, priority, input_data, output_data,
			context, created_by, created_at, started_at, completed_at,
			error_message, retry_count, max_retries
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			output_data = EXCLUDED.output_data,
			context = EXCLUDED.context,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			error_message = EXCLUDED.error_message,
			retry_count = EXCLUDED.retry_count,
			max_retries = EXCLUDED.max_retries
	`,
		execution.ID, execution.TemplateID, string(execution.Status),
		string(execution.Priority), inputData, outputData, contextData,
		execution.CreatedBy, execution.CreatedAt,
		execution.StartedAt, execution.CompletedAt,
		execution.ErrorMessage, execution.RetryCount, execution.MaxRetries,
	)
	if err != nil {
		return persistence.NewStorageError("SaveExecution", execution.ID, err)
	}

	return nil
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution              models.WorkflowExecution
		status, priority       string
		input, output, context []byte
	)

	err := row.Scan(
		&execution.ID, &execution.TemplateID, &status, &priority,
		&input, &output, &context,
		&execution.CreatedBy, &execution.CreatedAt,
		&execution.StartedAt, &execution.CompletedAt,
		&execution.ErrorMessage, &execution.RetryCount, &execution.MaxRetries,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.Priority = models.Priority(priority)

	if len(input) > 0 {
		if err := json.Unmarshal(input, &execution.InputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
		}
	}

	if len(output) > 0 {
		if err := json.Unmarshal(output, &execution.OutputData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal output data: %w", err)
		}
	}

	if len(context) > 0 {
		if err := json.Unmarshal(context, &execution.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
	}

	return &execution, nil
}
