// Package delay provides a node that pauses the walk for a configured interval.
package delay

import (
	"context"
	"time"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
)

const NodeType = "delay"

// New creates a delay node. The wait is cancellable through the execution
// context so cancelled workflows do not sit out the full interval.
func New(id string, config map[string]any) (*nodes.Action, error) {
	node := &nodes.Action{
		Base: nodes.NewBase(NodeType, id, config, nil, map[string]nodes.OutputSpec{
			"delayed_time": {Type: nodes.TypeNumber, Description: "Seconds actually waited"},
		}),
	}

	seconds := node.ConfigNumber("delay_seconds", 1)
	if seconds < 0 {
		seconds = 0
	}

	node.Perform = func(ctx context.Context, _ map[string]any, _ *models.ExecutionContext) (map[string]any, error) {
		wait := time.Duration(seconds * float64(time.Second))
		started := time.Now()

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		node.Logger.Debug("delay elapsed", "seconds", seconds)

		return map[string]any{
			"delayed_time": time.Since(started).Seconds(),
		}, nil
	}

	return node, nil
}

// Factory registers the delay node type.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Type() string { return NodeType }

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (nodes.Node, error) {
	return New(id, config)
}

func (f *Factory) Schema() *models.NodeSchema {
	return &models.NodeSchema{
		Type:        NodeType,
		Name:        "Delay",
		Description: "Pauses workflow progress for a configured number of seconds.",
		Outputs: map[string]models.PortSpec{
			"delayed_time": {Type: "number", Description: "Seconds actually waited"},
		},
		ConfigSchema: &models.JSONSchema{
			Type: "object",
			Properties: map[string]*models.Property{
				"delay_seconds": {Type: "number", Default: 1, Description: "Seconds to wait"},
			},
		},
	}
}
