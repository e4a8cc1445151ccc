package models

// ExecutionContext is the mutable per-execution state threaded through the
// graph walk: scope-merged variables, per-node output cache and the final
// output written by the end node. It is single-goroutine state; a serialized
// snapshot is copied into WorkflowExecution.Context so a paused run can be
// resumed by a fresh worker.
type ExecutionContext struct {
	ExecutionID string
	TemplateID  string

	Input       map[string]any
	Variables   map[string]any
	NodeOutputs map[string]map[string]any
	Output      any

	// Resolution bookkeeping for resume: node ids already completed or skipped.
	Executed map[string]bool
	Skipped  map[string]bool
}

// NewExecutionContext builds the context for a fresh run.
func NewExecutionContext(executionID, templateID string, input, variables map[string]any) *ExecutionContext {
	if input == nil {
		input = make(map[string]any)
	}

	if variables == nil {
		variables = make(map[string]any)
	}

	return &ExecutionContext{
		ExecutionID: executionID,
		TemplateID:  templateID,
		Input:       input,
		Variables:   variables,
		NodeOutputs: make(map[string]map[string]any),
		Executed:    make(map[string]bool),
		Skipped:     make(map[string]bool),
	}
}

// Variable resolves a variable by name.
func (c *ExecutionContext) Variable(name string) (any, bool) {
	value, ok := c.Variables[name]

	return value, ok
}

// SetVariable reassigns a variable for the remainder of the execution.
func (c *ExecutionContext) SetVariable(name string, value any) {
	c.Variables[name] = value
}

// NodeOutput returns the cached output map of a previously executed node.
func (c *ExecutionContext) NodeOutput(nodeID string) (map[string]any, bool) {
	output, ok := c.NodeOutputs[nodeID]

	return output, ok
}

// SetNodeOutput caches a node's output and marks the node executed.
func (c *ExecutionContext) SetNodeOutput(nodeID string, output map[string]any) {
	if output == nil {
		output = make(map[string]any)
	}

	c.NodeOutputs[nodeID] = output
	c.Executed[nodeID] = true
}

// MarkSkipped records that a node was resolved without running.
func (c *ExecutionContext) MarkSkipped(nodeID string) {
	c.Skipped[nodeID] = true
}

// Resolved reports whether a node no longer blocks its successors.
func (c *ExecutionContext) Resolved(nodeID string) bool {
	return c.Executed[nodeID] || c.Skipped[nodeID]
}

// Snapshot serializes the context into a JSON-compatible document for
// persistence alongside the execution record.
func (c *ExecutionContext) Snapshot() map[string]any {
	executed := make([]string, 0, len(c.Executed))
	for id := range c.Executed {
		executed = append(executed, id)
	}

	skipped := make([]string, 0, len(c.Skipped))
	for id := range c.Skipped {
		skipped = append(skipped, id)
	}

	outputs := make(map[string]any, len(c.NodeOutputs))
	for id, out := range c.NodeOutputs {
		outputs[id] = out
	}

	return map[string]any{
		"variables":    c.Variables,
		"node_outputs": outputs,
		"output_data":  c.Output,
		"executed":     executed,
		"skipped":      skipped,
	}
}

// RestoreExecutionContext rebuilds a context from a persisted snapshot so a
// resumed execution picks up exactly where the paused one left off.
func RestoreExecutionContext(executionID, templateID string, input, snapshot map[string]any) *ExecutionContext {
	ctx := NewExecutionContext(executionID, templateID, input, nil)

	if variables, ok := snapshot["variables"].(map[string]any); ok {
		ctx.Variables = variables
	}

	if outputs, ok := snapshot["node_outputs"].(map[string]any); ok {
		for id, raw := range outputs {
			if out, ok := raw.(map[string]any); ok {
				ctx.NodeOutputs[id] = out
			}
		}
	}

	ctx.Output = snapshot["output_data"]

	for _, id := range toStringSlice(snapshot["executed"]) {
		ctx.Executed[id] = true
	}

	for _, id := range toStringSlice(snapshot["skipped"]) {
		ctx.Skipped[id] = true
	}

	return ctx
}

func toStringSlice(raw any) []string {
	switch values := raw.(type) {
	case []string:
		return values
	case []any:
		out := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
