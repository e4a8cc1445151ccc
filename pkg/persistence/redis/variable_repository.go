// Package redis provides a Redis-backed variable repository. Variables are
// hot-path reads during input binding resolution, so deployments can point
// them at Redis while templates and executions stay in SQL or files.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
)

const keyPrefix = "docuflow:variables"

// VariableRepository implements persistence.VariableRepository on Redis.
// Each variable is a JSON value keyed by id, with one set per scope bucket
// for listing.
type VariableRepository struct {
	client *redis.Client
}

func NewVariableRepository(client *redis.Client) *VariableRepository {
	return &VariableRepository{client: client}
}

func variableKey(id string) string {
	return keyPrefix + ":id:" + id
}

func scopeKey(scope models.VariableScope, scopeID string) string {
	if scopeID == "" {
		return fmt.Sprintf("%s:scope:%s", keyPrefix, scope)
	}

	return fmt.Sprintf("%s:scope:%s:%s", keyPrefix, scope, scopeID)
}

func scopeID(variable *models.WorkflowVariable) string {
	switch variable.Scope {
	case models.ScopeTemplate:
		return variable.TemplateID
	case models.ScopeExecution:
		return variable.ExecutionID
	default:
		return ""
	}
}

func (r *VariableRepository) Variables(ctx context.Context, scope models.VariableScope, sid string) ([]*models.WorkflowVariable, error) {
	if scope == models.ScopeGlobal {
		sid = ""
	}

	ids, err := r.client.SMembers(ctx, scopeKey(scope, sid)).Result()
	if err != nil {
		return nil, persistence.NewStorageError("Variables", sid, err)
	}

	out := make([]*models.WorkflowVariable, 0, len(ids))

	for _, id := range ids {
		variable, err := r.VariableByID(ctx, id)
		if persistence.IsVariableNotFound(err) {
			// Stale index entry; drop it.
			_ = r.client.SRem(ctx, scopeKey(scope, sid), id).Err()

			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, variable)
	}

	return out, nil
}

func (r *VariableRepository) VariableByID(ctx context.Context, id string) (*models.WorkflowVariable, error) {
	raw, err := r.client.Get(ctx, variableKey(id)).Bytes()
	if err == redis.Nil {
		return nil, persistence.NewStorageError("VariableByID", id, persistence.ErrVariableNotFound)
	}

	if err != nil {
		return nil, persistence.NewStorageError("VariableByID", id, err)
	}

	var variable models.WorkflowVariable
	if err := json.Unmarshal(raw, &variable); err != nil {
		return nil, persistence.NewStorageError("VariableByID", id, err)
	}

	return &variable, nil
}

func (r *VariableRepository) SaveVariable(ctx context.Context, variable *models.WorkflowVariable) error {
	raw, err := json.Marshal(variable)
	if err != nil {
		return persistence.NewStorageError("SaveVariable", variable.ID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, variableKey(variable.ID), raw, 0)
	pipe.SAdd(ctx, scopeKey(variable.Scope, scopeID(variable)), variable.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStorageError("SaveVariable", variable.ID, err)
	}

	return nil
}

func (r *VariableRepository) DeleteVariable(ctx context.Context, id string) error {
	variable, err := r.VariableByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, variableKey(id))
	pipe.SRem(ctx, scopeKey(variable.Scope, scopeID(variable)), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStorageError("DeleteVariable", id, err)
	}

	return nil
}
