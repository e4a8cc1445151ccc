package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
)

// NodeExecutionRepository handles per-node execution records.
type NodeExecutionRepository struct {
	db *sql.DB
}

func (r *NodeExecutionRepository) NodeExecutions(ctx context.Context, executionID string) ([]*models.NodeExecution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, execution_id, node_id, node_type, node_name, status,
			   input_data, output_data, started_at, completed_at, error_message
		FROM node_executions
		WHERE execution_id = $1
		ORDER BY started_at NULLS LAST
	`, executionID)
	if err != nil {
		return nil, persistence.NewStorageError("NodeExecutions", executionID, err)
	}

	defer func() { _ = rows.Close() }()

	out := make([]*models.NodeExecution, 0)

	for rows.Next() {
		var (
			record        models.NodeExecution
			status        string
			input, output []byte
		)

		err := rows.Scan(
			&record.ID, &record.ExecutionID, &record.NodeID, &record.NodeType,
			&record.NodeName, &status, &input, &output,
			&record.StartedAt, &record.CompletedAt, &record.ErrorMessage,
		)
		if err != nil {
			return nil, persistence.NewStorageError("NodeExecutions", executionID, err)
		}

		record.Status = models.NodeStatus(status)

		if len(input) > 0 {
			if err := json.Unmarshal(input, &record.InputData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal node input: %w", err)
			}
		}

		if len(output) > 0 {
			if err := json.Unmarshal(output, &record.OutputData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal node output: %w", err)
			}
		}

		out = append(out, &record)
	}

	return out, rows.Err()
}

func (r *NodeExecutionRepository) SaveNodeExecution(ctx context.Context, record *models.NodeExecution) error {
	input, err := json.Marshal(record.InputData)
	if err != nil {
		return persistence.NewStorageError("SaveNodeExecution", record.ID, err)
	}

	output, err := json.Marshal(record.OutputData)
	if err != nil {
		return persistence.NewStorageError("SaveNodeExecution", record.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO node_executions (
			id, execution_id, node_id, node_type, node_name, status,
			input_data, output_data, started_at, completed_at, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			input_data = EXCLUDED.input_data,
			output_data = EXCLUDED.output_data,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			error_message = EXCLUDED.error_message
	`,
		record.ID, record.ExecutionID, record.NodeID, record.NodeType,
		record.NodeName, string(record.Status), input, output,
		record.StartedAt, record.CompletedAt, record.ErrorMessage,
	)
	if err != nil {
		return persistence.NewStorageError("SaveNodeExecution", record.ID, err)
	}

	return nil
}
