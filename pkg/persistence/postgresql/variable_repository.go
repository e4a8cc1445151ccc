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

// VariableRepository handles workflow variable storage.
type VariableRepository struct {
	db *sql.DB
}

const variableColumns = `id, name, description, scope, type, value,
	template_id, execution_id, encrypted, created_by, created_at, updated_at`

func (r *VariableRepository) Variables(ctx context.Context, scope models.VariableScope, scopeID string) ([]*models.WorkflowVariable, error) {
	query := `SELECT ` + variableColumns + ` FROM workflow_variables WHERE scope = $1`
	args := []any{string(scope)}

	switch scope {
	case models.ScopeTemplate:
		args = append(args, scopeID)
		query += " AND template_id = $2"
	case models.ScopeExecution:
		args = append(args, scopeID)
		query += " AND execution_id = $2"
	case models.ScopeGlobal:
	}

	query += " ORDER BY name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewStorageError("Variables", scopeID, err)
	}

	defer func() { _ = rows.Close() }()

	out := make([]*models.WorkflowVariable, 0)

	for rows.Next() {
		variable, err := scanVariable(rows)
		if err != nil {
			return nil, persistence.NewStorageError("Variables", scopeID, err)
		}

		out = append(out, variable)
	}

	return out, rows.Err()
}

func (r *VariableRepository) VariableByID(ctx context.Context, id string) (*models.WorkflowVariable, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+variableColumns+` FROM workflow_variables WHERE id = $1`, id)

	variable, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewStorageError("VariableByID", id, persistence.ErrVariableNotFound)
	}

	if err != nil {
		return nil, persistence.NewStorageError("VariableByID", id, err)
	}

	return variable, nil
}

func (r *VariableRepository) SaveVariable(ctx context.Context, variable *models.WorkflowVariable) error {
	value, err := json.Marshal(variable.Value)
	if err != nil {
		return persistence.NewStorageError("SaveVariable", variable.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_variables (
			id, name, description, scope, type, value,
			template_id, execution_id, encrypted, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			encrypted = EXCLUDED.encrypted,
			updated_at = EXCLUDED.updated_at
	`,
		variable.ID, variable.Name, variable.Description, string(variable.Scope),
		string(variable.Type), value, variable.TemplateID, variable.ExecutionID,
		variable.Encrypted, variable.CreatedBy, variable.CreatedAt, variable.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("SaveVariable", variable.ID, err)
	}

	return nil
}

func (r *VariableRepository) DeleteVariable(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_variables WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStorageError("DeleteVariable", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStorageError("DeleteVariable", id, persistence.ErrVariableNotFound)
	}

	return nil
}

func scanVariable(row rowScanner) (*models.WorkflowVariable, error) {
	var (
		variable                models.WorkflowVariable
		scope, varType          string
		value                   []byte
		templateID, executionID sql.NullString
	)

	err := row.Scan(
		&variable.ID, &variable.Name, &variable.Description, &scope, &varType,
		&value, &templateID, &executionID, &variable.Encrypted,
		&variable.CreatedBy, &variable.CreatedAt, &variable.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	variable.Scope = models.VariableScope(scope)
	variable.Type = models.VariableType(varType)
	variable.TemplateID = templateID.String
	variable.ExecutionID = executionID.String

	if len(value) > 0 {
		if err := json.Unmarshal(value, &variable.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variable value: %w", err)
		}
	}

	return &variable, nil
}
