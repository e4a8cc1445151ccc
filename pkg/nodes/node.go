// Package nodes defines the capability contract every workflow node satisfies:
// declared inputs and outputs, typed input validation and an Execute method
// invoked by the engine with resolved input bindings.
package nodes

import (
	"context"
	"fmt"

	"github.com/docuflow/docuflow/pkg/models"
)

// ValueType is the declared type of a node input or output.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeList    ValueType = "list"
	TypeDict    ValueType = "dict"
	TypeAny     ValueType = "any"
)

// InputSpec declares one node input. Source and Default drive the engine's
// input binding resolution: a `$name` source resolves against context
// variables, a `nodeId.output` source against a prior node's cached output,
// anything else is taken as a literal; Default applies when no source
// resolves.
type InputSpec struct {
	Type        ValueType
	Description string
	Required    bool
	Source      string
	Default     any
	HasDefault  bool
}

// OutputSpec declares one node output.
type OutputSpec struct {
	Type        ValueType
	Description string
}

// Node is the polymorphic unit of work dispatched by the engine.
type Node interface {
	ID() string
	Type() string
	Name() string
	Inputs() map[string]InputSpec
	Outputs() map[string]OutputSpec

	// Execute runs the node with validated inputs. Returned errors abort the
	// whole execution; recoverable conditions are reported inside the output
	// map instead (success flags, error fields).
	Execute(ctx context.Context, input map[string]any, ec *models.ExecutionContext) (map[string]any, error)
}

// Factory creates node instances and provides metadata about the node type.
type Factory interface {
	// Create builds a node instance with the given configuration.
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// Type returns the node-type identifier used in definitions.
	Type() string

	// Schema returns the descriptor of declared inputs, outputs and config.
	Schema() *models.NodeSchema
}

// ValidationError reports a node input contract violation: a missing required
// input or a value whose type does not match the declared schema. It aborts
// only the offending node and surfaces as a node failure.
type ValidationError struct {
	NodeID string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("node %s: input %q: %s", e.NodeID, e.Input, e.Reason)
}

// CheckType reports whether a resolved value matches the declared type.
// Numeric JSON decodes as float64 but nodes may also produce Go ints.
func CheckType(value any, expected ValueType) bool {
	if value == nil {
		return expected == TypeAny
	}

	switch expected {
	case TypeString:
		_, ok := value.(string)

		return ok
	case TypeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		default:
			return false
		}
	case TypeBoolean:
		_, ok := value.(bool)

		return ok
	case TypeList:
		_, ok := value.([]any)

		return ok
	case TypeDict:
		_, ok := value.(map[string]any)

		return ok
	case TypeAny:
		return true
	default:
		return false
	}
}
