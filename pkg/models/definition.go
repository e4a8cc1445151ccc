package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// NodeDef declares one node instance in a template definition.
type NodeDef struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// EdgeDef declares a directed dependency between two nodes, optionally gated
// by a condition expression evaluated against the execution context.
type EdgeDef struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
}

// Definition is the declarative node/edge document a template carries.
type Definition struct {
	Nodes []NodeDef `json:"nodes"`
	Edges []EdgeDef `json:"edges"`
}

// definitionSchema is the structural contract for incoming definitions,
// enforced before any engine-level validation runs.
var definitionSchema = map[string]any{
	"type":     "object",
	"required": []any{"nodes", "edges"},
	"properties": map[string]any{
		"nodes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "type"},
				"properties": map[string]any{
					"id":     map[string]any{"type": "string", "minLength": 1},
					"type":   map[string]any{"type": "string", "minLength": 1},
					"config": map[string]any{"type": "object"},
				},
			},
		},
		"edges": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"source", "target"},
				"properties": map[string]any{
					"source":    map[string]any{"type": "string", "minLength": 1},
					"target":    map[string]any{"type": "string", "minLength": 1},
					"condition": map[string]any{"type": "string"},
				},
			},
		},
	},
}

// ValidateDefinitionDocument checks a raw definition document against the
// structural schema. Referential checks (edge endpoints, node types, cycles)
// belong to the execution graph builder.
func ValidateDefinitionDocument(document map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(definitionSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("definition schema validation: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return errors.New("invalid workflow definition: " + strings.Join(details, "; "))
	}

	return nil
}

// Validate performs the structural checks that do not need a node registry:
// unique node ids and edges referencing declared nodes.
func (d *Definition) Validate() error {
	seen := make(map[string]bool, len(d.Nodes))

	for _, node := range d.Nodes {
		if node.ID == "" {
			return errors.New("definition contains a node without an id")
		}

		if node.Type == "" {
			return fmt.Errorf("node %q has no type", node.ID)
		}

		if seen[node.ID] {
			return fmt.Errorf("duplicate node id %q", node.ID)
		}

		seen[node.ID] = true
	}

	for _, edge := range d.Edges {
		if !seen[edge.Source] {
			return fmt.Errorf("edge references undeclared source node %q", edge.Source)
		}

		if !seen[edge.Target] {
			return fmt.Errorf("edge references undeclared target node %q", edge.Target)
		}
	}

	return nil
}
