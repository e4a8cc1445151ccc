// Package end provides the terminal node that captures the workflow result.
package end

import (
	"context"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "end"

// Node writes its optional result input into the execution context output.
// Terminal: declares no outputs and never fails.
type Node struct {
	nodes.Base
}

func New(id string, config map[string]any) *Node {
	return &Node{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"result": {Type: nodes.TypeAny, Description: "Final workflow result", Required: false},
		}, nil),
	}
}

func (n *Node) Execute(_ context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if err := n.ValidateInputs(input); err != nil {
		return nil, err
	}

	result, ok := input["result"]
	if !ok {
		result = map[string]any{}
	}

	ec.Output = result
	n.Logger.Info("workflow execution finished")

	return map[string]any{}, nil
}

// Factory registers the end node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config), nil
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "End",
		Description: "Terminal node writing its result input to the execution output.",
		Inputs: map[string]models.PortSpec{
			"result": {Type: "any", Description: "Final workflow result"},
		},
		Outputs: map[string]models.PortSpec{},
	}
}
