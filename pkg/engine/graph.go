package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/pkg/conditions"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
	"github.com/docuflow/docuflow/pkg/registry"
)

// ExecutionGraph is the runnable form of a template definition: instantiated
// nodes, adjacency in both directions and a topological visit order. Building
// the graph rejects cycles, unknown node types, missing start nodes and
// malformed edge conditions, so a graph that exists can always be walked.
type ExecutionGraph struct {
	templateID string

	nodes    map[string]nodes.Node
	incoming map[string][]models.EdgeDef
	outgoing map[string][]models.EdgeDef
	order    []string
	starts   []string
}

// BuildGraph instantiates a definition against the registry.
func BuildGraph(ctx context.Context, reg *registry.Registry, templateID string, definition *models.Definition) (*ExecutionGraph, error) {
	fail := func(stage string, err error) (*ExecutionGraph, error) {
		return nil, &ExecutionError{TemplateID: templateID, Stage: stage, Err: err}
	}

	if err := definition.Validate(); err != nil {
		return fail("validation", err)
	}

	g := &ExecutionGraph{
		templateID: templateID,
		nodes:      make(map[string]nodes.Node, len(definition.Nodes)),
		incoming:   make(map[string][]models.EdgeDef),
		outgoing:   make(map[string][]models.EdgeDef),
	}

	for _, def := range definition.Nodes {
		node, err := reg.Create(ctx, def.Type, def.ID, def.Config)
		if err != nil {
			return fail("instantiation", fmt.Errorf("node %s: %w", def.ID, err))
		}

		g.nodes[def.ID] = node
	}

	for _, edge := range definition.Edges {
		if edge.Condition != "" && !isBranchLiteral(edge.Condition) {
			if err := conditions.Validate(edge.Condition); err != nil {
				return fail("validation", fmt.Errorf("edge %s->%s condition: %w", edge.Source, edge.Target, err))
			}
		}

		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge)
	}

	// Entry points are the nodes nothing feeds into, regardless of type.
	for _, def := range definition.Nodes {
		if len(g.incoming[def.ID]) == 0 {
			g.starts = append(g.starts, def.ID)
		}
	}

	if len(g.starts) == 0 {
		return fail("validation", errors.New("definition has no start node"))
	}

	order, err := topologicalOrder(definition)
	if err != nil {
		return fail("validation", err)
	}

	g.order = order

	return g, nil
}

// topologicalOrder runs Kahn's algorithm over the definition. Ties resolve in
// declaration order so walks are deterministic. A non-empty remainder means
// the definition carries a cycle, which is rejected outright.
func topologicalOrder(definition *models.Definition) ([]string, error) {
	inDegree := make(map[string]int, len(definition.Nodes))
	successors := make(map[string][]string)

	for _, node := range definition.Nodes {
		inDegree[node.ID] = 0
	}

	for _, edge := range definition.Edges {
		successors[edge.Source] = append(successors[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	// Queue seeded and refilled in declaration order.
	queue := make([]string, 0, len(definition.Nodes))

	for _, node := range definition.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	order := make([]string, 0, len(definition.Nodes))
	ready := make(map[string]bool)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, next := range successors[current] {
			inDegree[next]--

			if inDegree[next] == 0 {
				ready[next] = true
			}
		}

		if len(queue) == 0 && len(ready) > 0 {
			for _, node := range definition.Nodes {
				if ready[node.ID] {
					queue = append(queue, node.ID)
					delete(ready, node.ID)
				}
			}
		}
	}

	if len(order) != len(definition.Nodes) {
		remaining := make([]string, 0)

		for _, node := range definition.Nodes {
			if inDegree[node.ID] > 0 {
				remaining = append(remaining, node.ID)
			}
		}

		return nil, fmt.Errorf("definition contains a cycle involving nodes %v", remaining)
	}

	return order, nil
}

// Order returns the topological visit order.
func (g *ExecutionGraph) Order() []string {
	return g.order
}

// StartNodes returns the ids of the start nodes.
func (g *ExecutionGraph) StartNodes() []string {
	return g.starts
}

// Node returns an instantiated node by id.
func (g *ExecutionGraph) Node(id string) (nodes.Node, bool) {
	node, ok := g.nodes[id]

	return node, ok
}

// Size returns the number of nodes in the graph.
func (g *ExecutionGraph) Size() int {
	return len(g.nodes)
}

// Incoming returns the edges arriving at a node.
func (g *ExecutionGraph) Incoming(id string) []models.EdgeDef {
	return g.incoming[id]
}

// Outgoing returns the edges leaving a node.
func (g *ExecutionGraph) Outgoing(id string) []models.EdgeDef {
	return g.outgoing[id]
}

// ShouldRun decides whether a node is reachable given the walk so far: start
// nodes always run, every other node runs when at least one incoming edge is
// active. An edge is active when its source executed (not skipped) and its
// condition holds.
func (g *ExecutionGraph) ShouldRun(nodeID string, ec *models.ExecutionContext) (bool, error) {
	edges := g.incoming[nodeID]
	if len(edges) == 0 {
		return true, nil
	}

	for _, edge := range edges {
		active, err := g.edgeActive(edge, ec)
		if err != nil {
			return false, err
		}

		if active {
			return true, nil
		}
	}

	return false, nil
}

// edgeActive evaluates one edge against the execution context. The literals
// "true" and "false" are branch selectors gating on the source node's
// condition_result output; anything else is an expression.
func (g *ExecutionGraph) edgeActive(edge models.EdgeDef, ec *models.ExecutionContext) (bool, error) {
	if !ec.Executed[edge.Source] {
		return false, nil
	}

	if edge.Condition == "" {
		return true, nil
	}

	sourceOutput, _ := ec.NodeOutput(edge.Source)

	if isBranchLiteral(edge.Condition) {
		want := edge.Condition == "true"
		got := conditions.Truthy(sourceOutput[nodes.OutputConditionResult])

		return got == want, nil
	}

	env := conditionEnv(ec, sourceOutput)

	active, err := conditions.EvaluateBool(edge.Condition, env)
	if err != nil {
		return false, fmt.Errorf("edge %s->%s condition: %w", edge.Source, edge.Target, err)
	}

	return active, nil
}

// conditionEnv assembles the environment an edge expression sees: the source
// node's outputs at top level plus the named context sections.
func conditionEnv(ec *models.ExecutionContext, sourceOutput map[string]any) map[string]any {
	env := make(map[string]any, len(sourceOutput)+4)

	for k, v := range sourceOutput {
		env[k] = v
	}

	env["input"] = ec.Input
	env["variables"] = ec.Variables
	env["vars"] = ec.Variables
	env["nodes"] = ec.NodeOutputs

	return env
}

func isBranchLiteral(condition string) bool {
	return condition == "true" || condition == "false"
}
