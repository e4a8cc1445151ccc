// Package transform provides the data transformation node built on the
// template renderer.
package transform

import (
	"context"
	"errors"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
	"github.com/docuflow/docuflow/pkg/template"
)

const NodeType = "transform"

// New creates a transform node. The transform script is a template rendered
// against the resolved input and the execution context; a render failure
// passes the original data through with the error recorded.
func New(id string, config map[string]any) (*nodes.DataProcessing, error) {
	script, _ := config["transform_script"].(string)
	if script == "" {
		return nil, errors.New("missing required config 'transform_script'")
	}

	node := &nodes.DataProcessing{
		Base: nodes.NewBase(NodeType, id, config, map[string]nodes.InputSpec{
			"input_data": {Type: nodes.TypeAny, Description: "Data to transform", Required: true},
		}, map[string]nodes.OutputSpec{
			"transformed_data": {Type: nodes.TypeAny, Description: "Result of the transform"},
		}),
	}

	node.Process = func(_ context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
		data := input["input_data"]

		rendered, err := template.Render(script, map[string]any{
			"input":     data,
			"variables": ec.Variables,
			"vars":      ec.Variables,
			"nodes":     ec.NodeOutputs,
		})
		if err != nil {
			node.Logger.Warn("transform render failed, passing data through", "error", err)

			return map[string]any{
				"transformed_data": data,
				"error":            err.Error(),
			}, nil
		}

		return map[string]any{
			"transformed_data": rendered,
		}, nil
	}

	return node, nil
}

// Factory registers the transform node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Transform",
		Description: "Reshapes data with a template script.",
		Inputs: map[string]models.PortSpec{
			"input_data": {Type: "any", Description: "Data to transform", Required: true},
		},
		Outputs: map[string]models.PortSpec{
			"transformed_data": {Type: "any", Description: "Result of the transform"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"transform_script": {Type: "string", Description: "Template applied to the input"},
			},
			Required: []string{"transform_script"},
		},
	}
}
