package nodes

import (
	"context"
	"log/slog"

	"github.com/docuflow/docuflow/pkg/models"
)

// OutputConditionResult is the single declared output of conditional nodes.
const OutputConditionResult = "condition_result"

// Base carries the state shared by every node implementation: identity,
// config access and declared input/output specs. Concrete nodes embed it.
type Base struct {
	NodeID   string
	NodeType string
	NodeName string
	Config   map[string]any

	InputSpecs  map[string]InputSpec
	OutputSpecs map[string]OutputSpec

	Logger *slog.Logger
}

// NewBase builds the shared node state. A "name" config key overrides the
// display name, and an "inputs" config block may override per-input bindings
// (source, default) without touching the declared types.
func NewBase(nodeType, id string, config map[string]any, inputs map[string]InputSpec, outputs map[string]OutputSpec) Base {
	if config == nil {
		config = make(map[string]any)
	}

	name := id
	if n, ok := config["name"].(string); ok && n != "" {
		name = n
	}

	if inputs == nil {
		inputs = make(map[string]InputSpec)
	}

	if outputs == nil {
		outputs = make(map[string]OutputSpec)
	}

	applyBindingOverrides(config, inputs)

	return Base{
		NodeID:      id,
		NodeType:    nodeType,
		NodeName:    name,
		Config:      config,
		InputSpecs:  inputs,
		OutputSpecs: outputs,
		Logger:      slog.With("node_type", nodeType, "node_id", id),
	}
}

// applyBindingOverrides merges `config["inputs"]` entries into the declared
// specs so definitions can wire inputs to variables and prior node outputs.
func applyBindingOverrides(config map[string]any, inputs map[string]InputSpec) {
	overrides, ok := config["inputs"].(map[string]any)
	if !ok {
		return
	}

	for name, raw := range overrides {
		spec, declared := inputs[name]
		if !declared {
			continue
		}

		binding, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		if source, ok := binding["source"].(string); ok {
			spec.Source = source
		}

		if def, ok := binding["default"]; ok {
			spec.Default = def
			spec.HasDefault = true
		}

		inputs[name] = spec
	}
}

func (b *Base) ID() string   { return b.NodeID }
func (b *Base) Type() string { return b.NodeType }
func (b *Base) Name() string { return b.NodeName }

func (b *Base) Inputs() map[string]InputSpec   { return b.InputSpecs }
func (b *Base) Outputs() map[string]OutputSpec { return b.OutputSpecs }

// ValidateInputs checks resolved inputs against the declared schema before
// Execute runs.
func (b *Base) ValidateInputs(input map[string]any) error {
	for name, spec := range b.InputSpecs {
		value, present := input[name]

		if !present {
			if spec.Required {
				return &ValidationError{NodeID: b.NodeID, Input: name, Reason: "required input missing"}
			}

			continue
		}

		if !CheckType(value, spec.Type) {
			return &ValidationError{
				NodeID: b.NodeID,
				Input:  name,
				Reason: "expected " + string(spec.Type),
			}
		}
	}

	return nil
}

// ConfigString reads a string config value with a fallback.
func (b *Base) ConfigString(key, fallback string) string {
	if v, ok := b.Config[key].(string); ok {
		return v
	}

	return fallback
}

// ConfigNumber reads a numeric config value with a fallback. JSON decoding
// yields float64; literal Go configs may carry int.
func (b *Base) ConfigNumber(key string, fallback float64) float64 {
	switch v := b.Config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// ConfigStringMap reads a map config value coercing entries to strings.
func (b *Base) ConfigStringMap(key string) map[string]string {
	out := make(map[string]string)

	if raw, ok := b.Config[key].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}

	return out
}

// ConditionFunc evaluates a boolean condition against resolved inputs.
type ConditionFunc func(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (bool, error)

// Conditional is the behavioral refinement for branching nodes: Execute wraps
// the evaluator and returns a single boolean output named condition_result.
type Conditional struct {
	Base
	Evaluate ConditionFunc
}

func (n *Conditional) Execute(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if err := n.ValidateInputs(input); err != nil {
		return nil, err
	}

	result, err := n.Evaluate(ctx, input, ec)
	if err != nil {
		return nil, err
	}

	n.Logger.Debug("condition evaluated", "result", result)

	return map[string]any{OutputConditionResult: result}, nil
}

// ActionFunc performs side-effecting work and returns the node output map.
type ActionFunc func(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error)

// Action is the behavioral refinement for side-effecting nodes (HTTP calls,
// email, file and database I/O, scripts).
type Action struct {
	Base
	Perform ActionFunc
}

func (n *Action) Execute(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if err := n.ValidateInputs(input); err != nil {
		return nil, err
	}

	return n.Perform(ctx, input, ec)
}

// ProcessFunc applies a pure transform to resolved inputs.
type ProcessFunc func(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error)

// DataProcessing is the behavioral refinement for pure transforms; no side
// effects are expected from Process.
type DataProcessing struct {
	Base
	Process ProcessFunc
}

func (n *DataProcessing) Execute(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error) {
	if err := n.ValidateInputs(input); err != nil {
		return nil, err
	}

	return n.Process(ctx, input, ec)
}
