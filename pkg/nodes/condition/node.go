// Package condition provides the conditional branching node for workflow graph execution.
package condition

import (
	"context"
	"errors"

	"github.com/docuflow/docuflow/pkg/conditions"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "condition"

// New creates a condition node evaluating config["condition_expression"]
// against the `data` input. The expression grammar is the restricted one from
// the conditions package; an evaluation error makes the condition false
// rather than failing the node.
func New(id string, config map[string]any) (*nodes.Conditional, error) {
	expression, _ := config["condition_expression"].(string)
	if expression == "" {
		return nil, errors.New("missing required config 'condition_expression'")
	}

	if err := conditions.Validate(expression); err != nil {
		return nil, errors.New("invalid condition_expression: " + err.Error())
	}

	node := &nodes.Conditional{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"data": {Type: nodes.TypeAny, Description: "Data the condition is evaluated against", Required: true},
		}, map[string]nodes.OutputSpec{
			nodes.OutputConditionResult: {Type: nodes.TypeBoolean, Description: "Condition evaluation result"},
		}),
	}

	node.Evaluate = func(_ context.Context, input map[string]any, _ *models.ExecutionContext) (bool, error) {
		env := buildEnv(input["data"])

		result, err := conditions.EvaluateBool(expression, env)
		if err != nil {
			node.Logger.Error("condition expression evaluation failed", "error", err)

			return false, nil
		}

		return result, nil
	}

	return node, nil
}

// buildEnv scopes the evaluation environment to the node's data input: map
// entries become top-level identifiers and the whole value stays reachable
// as `data`.
func buildEnv(data any) map[string]any {
	env := make(map[string]any)

	if m, ok := data.(map[string]any); ok {
		for k, v := range m {
			env[k] = v
		}
	}

	env["data"] = data

	return env
}

// Factory registers the condition node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Condition",
		Description: "Evaluates a restricted boolean expression against its data input.",
		Inputs: map[string]models.PortSpec{
			"data": {Type: "any", Description: "Data the condition is evaluated against", Required: true},
		},
		Outputs: map[string]models.PortSpec{
			nodes.OutputConditionResult: {Type: "boolean", Description: "Condition evaluation result"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"condition_expression": {Type: "string", Description: "Boolean expression over the data input"},
			},
			Required: []string{"condition_expression"},
		},
	}
}
