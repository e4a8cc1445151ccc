// Package dbquery provides the database query node backed by database/sql.
package dbquery

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "database_query"

// New creates a database query node. Query failures are reported in the
// output map so conditional branches can inspect them.
func New(id string, config map[string]any, db *sql.DB) (*nodes.Action, error) {
	query, _ := config["query"].(string)
	if query == "" {
		return nil, errors.New("missing required config 'query'")
	}

	queryType, _ := config["query_type"].(string)
	if queryType == "" {
		queryType = inferQueryType(query)
	}

	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"parameters": {Type: nodes.TypeList, Description: "Positional query parameters", Required: false},
		}, map[string]nodes.OutputSpec{
			"results":   {Type: nodes.TypeList, Description: "Rows for select queries"},
			"row_count": {Type: nodes.TypeNumber, Description: "Rows returned or affected"},
		}),
	}

	node.Perform = func(ctx context.Context, input map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
		if db == nil {
			return failure(errors.New("no database configured")), nil
		}

		args := toArgs(input["parameters"])

		if queryType == "select" {
			rows, err := queryRows(ctx, db, query, args)
			if err != nil {
				node.Logger.Error("query failed", "error", err)

				return failure(err), nil
			}

			return map[string]any{
				"results":   rows,
				"row_count": len(rows),
			}, nil
		}

		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			node.Logger.Error("statement failed", "error", err)

			return failure(err), nil
		}

		affected, err := result.RowsAffected()
		if err != nil {
			affected = 0
		}

		return map[string]any{
			"results":   []map[string]any{},
			"row_count": int(affected),
		}, nil
	}

	return node, nil
}

func failure(err error) map[string]any {
	return map[string]any{
		"results":   []map[string]any{},
		"row_count": 0,
		"error":     err.Error(),
	}
}

func inferQueryType(query string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select") {
		return "select"
	}

	return "exec"
}

func toArgs(raw any) []any {
	if list, ok := raw.([]any); ok {
		return list
	}

	return nil
}

// queryRows materializes the result set as maps so node outputs stay
// JSON-friendly.
func queryRows(ctx context.Context, db *sql.DB, query string, args []any) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))

		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}

		out = append(out, row)
	}

	return out, rows.Err()
}

// Factory registers the database_query node type.
type Factory struct {
	db *sql.DB
}

func NewFactory(db *sql.DB) *Factory {
	return &Factory{db: db}
}

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config, f.db)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Database Query",
		Description: "Runs a SQL query or statement against the configured database.",
		Inputs: map[string]models.PortSpec{
			"parameters": {Type: "list", Description: "Positional query parameters"},
		},
		Outputs: map[string]models.PortSpec{
			"results":   {Type: "list", Description: "Rows for select queries"},
			"row_count": {Type: "number", Description: "Rows returned or affected"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"query":      {Type: "string", Description: "SQL text with positional placeholders"},
				"query_type": {Type: "string", Enum: []any{"select", "exec"}, Description: "Defaults from the query verb"},
			},
			Required: []string{"query"},
		},
	}
}
