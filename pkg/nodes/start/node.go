// Package start provides the entry node that feeds the execution input into the graph.
package start

import (
	"context"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "start"

// Node exposes the execution's raw input as the workflow_data output.
// It declares no inputs and never fails.
type Node struct {
	nodes.Base
}

func New(id string, config map[string]any) *Node {
	return &Node{
		Base: nodes.NewBase(NodeType, id, config, nil, map[string]nodes.OutputSpec{
			"workflow_data": {Type: nodes.TypeDict, Description: "Raw execution input data"},
		}),
	}
}

func (n *Node) Execute(_ context.Context, _ map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	n.Logger.Info("workflow execution started")

	return map[string]any{"workflow_data": ec.Input}, nil
}

// Factory registers the start node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config), nil
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Start",
		Description: "Entry point returning the execution input as workflow_data.",
		Inputs:      map[string]models.PortSpec{},
		Outputs: map[string]models.PortSpec{
			"workflow_data": {Type: "dict", Description: "Raw execution input data"},
		},
	}
}
