// Package engine walks execution graphs: it resolves node inputs, dispatches
// nodes in topological order, persists per-node records and drives the
// execution lifecycle (pause, resume, cancel, retry).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docuflow/docuflow/pkg/eventbus"
	"github.com/docuflow/docuflow/pkg/events"
	"github.com/docuflow/docuflow/pkg/log"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/nodes"
	"github.com/docuflow/docuflow/pkg/otelhelper"
	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/registry"
	"github.com/docuflow/docuflow/pkg/secrets"
)

const defaultMaxWorkers = 8

const defaultMaxRetries = 3

// Engine executes workflow templates. One Engine instance owns every
// in-flight run it started; pause and cancel requests find their run through
// the mutex-guarded in-flight table.
type Engine struct {
	store    persistence.Persistence
	registry *registry.Registry
	bus      eventbus.EventPublisher
	tracer   trace.Tracer
	box      *secrets.Box
	logger   *slog.Logger

	workers chan struct{}

	mu      sync.Mutex
	running map[string]*runHandle
}

// runHandle is the control block of one in-flight run.
type runHandle struct {
	cancel context.CancelFunc

	mu        sync.Mutex
	pauseReq  bool
	cancelReq bool
}

func (h *runHandle) requestPause() {
	h.mu.Lock()
	h.pauseReq = true
	h.mu.Unlock()
}

func (h *runHandle) requestCancel() {
	h.mu.Lock()
	h.cancelReq = true
	h.mu.Unlock()
}

// check returns the pending request flags.
func (h *runHandle) check() (pause, cancelled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.pauseReq, h.cancelReq
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxWorkers bounds the number of concurrent runs.
func WithMaxWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = make(chan struct{}, n)
		}
	}
}

// WithTracer enables span emission around executions and node dispatches.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// WithSecretBox enables decryption of encrypted variables at load time.
func WithSecretBox(box *secrets.Box) Option {
	return func(e *Engine) { e.box = box }
}

func NewEngine(store persistence.Persistence, reg *registry.Registry, bus eventbus.EventPublisher, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: reg,
		bus:      bus,
		logger:   log.WithModule("engine"),
		workers:  make(chan struct{}, defaultMaxWorkers),
		running:  make(map[string]*runHandle),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Execute creates a pending execution for a template and starts the run
// asynchronously. The returned record reflects the pending state; progress is
// observable through Status.
func (e *Engine) Execute(ctx context.Context, templateID string, input map[string]any, createdBy string, priority models.Priority) (*models.WorkflowExecution, error) {
	template, err := e.store.TemplateRepository().TemplateByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	if !template.IsExecutable() {
		return nil, fmt.Errorf("%w: template %s is %s, only active templates can be executed",
			ErrTemplateNotExecutable, templateID, template.Status)
	}

	if priority == "" {
		priority = models.PriorityNormal
	}

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		TemplateID: templateID,
		Status:     models.ExecutionStatusPending,
		Priority:   priority,
		InputData:  input,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: defaultMaxRetries,
	}

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		return nil, err
	}

	if err := e.start(execution, template, nil); err != nil {
		return nil, err
	}

	return execution, nil
}

// start claims the in-flight slot for the execution and launches the walk
// goroutine. A non-nil restored context means the run resumes a paused
// execution. The claim fails when a walker is already live for the id, so
// racing resumes cannot launch two walkers over the same execution.
func (e *Engine) start(execution *models.WorkflowExecution, template *models.WorkflowTemplate, restored *models.ExecutionContext) error {
	runCtx, cancel := context.WithCancel(context.Background())
	handle := &runHandle{cancel: cancel}

	e.mu.Lock()
	if _, live := e.running[execution.ID]; live {
		e.mu.Unlock()
		cancel()

		return fmt.Errorf("execution %s already has a live worker", execution.ID)
	}

	e.running[execution.ID] = handle
	e.mu.Unlock()

	go func() {
		defer cancel()

		defer func() {
			e.mu.Lock()
			delete(e.running, execution.ID)
			e.mu.Unlock()
		}()

		e.workers <- struct{}{}
		defer func() { <-e.workers }()

		e.run(runCtx, handle, execution, template, restored)
	}()

	return nil
}

// run walks the graph for one execution. It owns the execution record for the
// duration; every persisted mutation happens on this goroutine.
func (e *Engine) run(ctx context.Context, handle *runHandle, execution *models.WorkflowExecution, template *models.WorkflowTemplate, restored *models.ExecutionContext) {
	logger := e.logger.With("execution_id", execution.ID, "template_id", template.ID)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.TemplateIDKey, template.ID),
		)
		defer span.End()
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusRunning

	if execution.StartedAt == nil {
		execution.StartedAt = &now
	}

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		logger.Error("failed to persist running status", "error", err)

		return
	}

	if restored == nil {
		e.publish(ctx, execution.ID, events.ExecutionStarted{
			BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, template.ID),
			ExecutionID:  execution.ID,
			TemplateName: template.Name,
			InputData:    execution.InputData,
			Initiator:    execution.CreatedBy,
		})
	}

	graph, err := BuildGraph(ctx, e.registry, template.ID, &template.Definition)
	if err != nil {
		logger.Error("failed to build execution graph", "error", err)
		e.finishFailed(ctx, execution, template, "", err)

		return
	}

	ec := restored
	if ec == nil {
		variables, err := e.loadVariables(ctx, execution)
		if err != nil {
			logger.Error("failed to load variables", "error", err)
			e.finishFailed(ctx, execution, template, "", err)

			return
		}

		ec = models.NewExecutionContext(execution.ID, template.ID, execution.InputData, variables)
	}

	logger.Info("walking execution graph", "nodes", graph.Size())

	for _, nodeID := range graph.Order() {
		if ec.Resolved(nodeID) {
			continue
		}

		pause, cancelled := handle.check()

		if cancelled || ctx.Err() != nil {
			e.finishCancelled(ctx, execution)

			return
		}

		if pause {
			e.finishPaused(ctx, execution, ec, nodeID)

			return
		}

		shouldRun, err := graph.ShouldRun(nodeID, ec)
		if err != nil {
			e.finishFailed(ctx, execution, template, nodeID, err)

			return
		}

		if !shouldRun {
			e.recordSkipped(ctx, execution, graph, ec, nodeID)

			continue
		}

		if err := e.runNode(ctx, execution, graph, ec, nodeID); err != nil {
			if _, cancelled := handle.check(); cancelled || ctx.Err() != nil {
				e.finishCancelled(ctx, execution)

				return
			}

			logger.Error("node failed", "node_id", nodeID, "error", err)
			e.finishFailed(ctx, execution, template, nodeID, err)

			return
		}
	}

	e.finishCompleted(ctx, execution, template, ec)
}

// runNode dispatches a single node: record, resolve, execute, cache.
func (e *Engine) runNode(ctx context.Context, execution *models.WorkflowExecution, graph *ExecutionGraph, ec *models.ExecutionContext, nodeID string) error {
	node, ok := graph.Node(nodeID)
	if !ok {
		return &NodeError{NodeID: nodeID, Err: errors.New("node missing from graph")}
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "node.execute",
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.NodeIDKey, nodeID),
			attribute.String(otelhelper.NodeTypeKey, node.Type()),
		)
		defer span.End()
	}

	started := time.Now().UTC()
	input := e.resolveInputs(node, ec)

	record := &models.NodeExecution{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		NodeType:    node.Type(),
		NodeName:    node.Name(),
		Status:      models.NodeStatusRunning,
		InputData:   input,
		StartedAt:   &started,
	}

	if err := e.store.NodeExecutionRepository().SaveNodeExecution(ctx, record); err != nil {
		return err
	}

	e.publish(ctx, execution.ID, events.NodeStarted{
		BaseEvent:   events.NewBaseEvent(events.NodeStartedEvent, execution.TemplateID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		NodeType:    node.Type(),
	})

	output, err := node.Execute(ctx, input, ec)
	completed := time.Now().UTC()
	record.CompletedAt = &completed

	if err != nil {
		record.Status = models.NodeStatusFailed
		record.ErrorMessage = err.Error()
		_ = e.store.NodeExecutionRepository().SaveNodeExecution(ctx, record)

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, nodeID))
		}

		e.publish(ctx, execution.ID, events.NodeFailed{
			BaseEvent:   events.NewBaseEvent(events.NodeFailedEvent, execution.TemplateID),
			ExecutionID: execution.ID,
			NodeID:      nodeID,
			NodeType:    node.Type(),
			Error:       err.Error(),
			DurationMs:  completed.Sub(started).Milliseconds(),
		})

		return &NodeError{NodeID: nodeID, NodeType: node.Type(), Err: err}
	}

	ec.SetNodeOutput(nodeID, output)

	record.Status = models.NodeStatusCompleted
	record.OutputData = output

	if err := e.store.NodeExecutionRepository().SaveNodeExecution(ctx, record); err != nil {
		return err
	}

	e.publish(ctx, execution.ID, events.NodeCompleted{
		BaseEvent:   events.NewBaseEvent(events.NodeCompletedEvent, execution.TemplateID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		NodeType:    node.Type(),
		OutputData:  output,
		DurationMs:  completed.Sub(started).Milliseconds(),
	})

	return nil
}

// recordSkipped marks a node unreachable for this run and records it so the
// timeline shows every node of the template.
func (e *Engine) recordSkipped(ctx context.Context, execution *models.WorkflowExecution, graph *ExecutionGraph, ec *models.ExecutionContext, nodeID string) {
	ec.MarkSkipped(nodeID)

	nodeType := ""
	nodeName := nodeID

	if node, ok := graph.Node(nodeID); ok {
		nodeType = node.Type()
		nodeName = node.Name()
	}

	record := &models.NodeExecution{
		ID:          uuid.New().String(),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		NodeType:    nodeType,
		NodeName:    nodeName,
		Status:      models.NodeStatusSkipped,
	}

	if err := e.store.NodeExecutionRepository().SaveNodeExecution(ctx, record); err != nil {
		e.logger.Warn("failed to persist skipped record", "node_id", nodeID, "error", err)
	}

	e.publish(ctx, execution.ID, events.NodeSkipped{
		BaseEvent:   events.NewBaseEvent(events.NodeSkippedEvent, execution.TemplateID),
		ExecutionID: execution.ID,
		NodeID:      nodeID,
		NodeType:    nodeType,
	})
}

// resolveInputs materializes a node's declared inputs from its bindings:
// `$name` reads a context variable, `nodeId.outputName` reads a cached node
// output, any other non-empty source is a literal. Unresolved inputs fall
// back to the declared default and then to the workflow input by name.
func (e *Engine) resolveInputs(node nodes.Node, ec *models.ExecutionContext) map[string]any {
	resolved := make(map[string]any)

	for name, spec := range node.Inputs() {
		if value, ok := resolveSource(spec.Source, ec); ok {
			resolved[name] = value

			continue
		}

		if spec.HasDefault {
			resolved[name] = spec.Default

			continue
		}

		if value, ok := ec.Input[name]; ok {
			resolved[name] = value
		}
	}

	return resolved
}

func resolveSource(source string, ec *models.ExecutionContext) (any, bool) {
	if source == "" {
		return nil, false
	}

	if strings.HasPrefix(source, "$") {
		return ec.Variable(strings.TrimPrefix(source, "$"))
	}

	if nodeID, outputName, ok := strings.Cut(source, "."); ok {
		if output, exists := ec.NodeOutput(nodeID); exists {
			value, present := output[outputName]

			return value, present
		}

		return nil, false
	}

	return source, true
}

// loadVariables merges the variable scopes in precedence order: global, then
// template, then execution, later scopes winning. Encrypted values are opened
// here so nodes only ever see plaintext.
func (e *Engine) loadVariables(ctx context.Context, execution *models.WorkflowExecution) (map[string]any, error) {
	repo := e.store.VariableRepository()
	merged := make(map[string]any)

	scopes := []struct {
		scope models.VariableScope
		id    string
	}{
		{models.ScopeGlobal, ""},
		{models.ScopeTemplate, execution.TemplateID},
		{models.ScopeExecution, execution.ID},
	}

	for _, s := range scopes {
		variables, err := repo.Variables(ctx, s.scope, s.id)
		if err != nil {
			return nil, err
		}

		for _, variable := range variables {
			value := variable.Value

			if variable.Encrypted {
				if e.box == nil {
					return nil, fmt.Errorf("variable %s is encrypted but no encryption key is configured", variable.Name)
				}

				sealed, ok := variable.Value.(string)
				if !ok {
					return nil, fmt.Errorf("variable %s: encrypted value is not a string", variable.Name)
				}

				plaintext, err := e.box.Open(sealed)
				if err != nil {
					return nil, fmt.Errorf("variable %s: %w", variable.Name, err)
				}

				value = plaintext
			}

			merged[variable.Name] = value
		}
	}

	return merged, nil
}

// Pause requests a pause of an in-flight execution. The walk honors the
// request at the next node boundary; the current node finishes first.
func (e *Engine) Pause(_ context.Context, executionID string) error {
	e.mu.Lock()
	handle, ok := e.running[executionID]
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotRunning, executionID)
	}

	handle.requestPause()

	return nil
}

// Resume restarts a paused execution from its persisted context snapshot.
// A fresh worker picks up exactly where the paused walk stopped.
func (e *Engine) Resume(ctx context.Context, executionID, resumedBy string) (*models.WorkflowExecution, error) {
	execution, err := e.store.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if execution.Status != models.ExecutionStatusPaused {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotResumable, executionID, execution.Status)
	}

	template, err := e.store.TemplateRepository().TemplateByID(ctx, execution.TemplateID)
	if err != nil {
		return nil, err
	}

	restored := models.RestoreExecutionContext(execution.ID, execution.TemplateID, execution.InputData, execution.Context)

	if err := e.start(execution, template, restored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotResumable, err)
	}

	e.publish(ctx, execution.ID, events.ExecutionResumed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, execution.TemplateID),
		ExecutionID: execution.ID,
		ResumedBy:   resumedBy,
	})

	return execution, nil
}

// Cancel stops an execution. In-flight runs stop at the next node boundary;
// pending and paused executions are cancelled directly.
func (e *Engine) Cancel(ctx context.Context, executionID, cancelledBy string) error {
	e.mu.Lock()
	handle, inFlight := e.running[executionID]
	e.mu.Unlock()

	if inFlight {
		handle.requestCancel()
		handle.cancel()

		return nil
	}

	execution, err := e.store.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.IsFinished() {
		return fmt.Errorf("execution %s already finished with status %s", executionID, execution.Status)
	}

	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		return err
	}

	e.publish(ctx, execution.ID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.TemplateID),
		ExecutionID: execution.ID,
		CancelledBy: cancelledBy,
	})

	return nil
}

// Retry creates a fresh execution from a failed one. The failed execution
// keeps its record; only its retry counter moves.
func (e *Engine) Retry(ctx context.Context, executionID, createdBy string) (*models.WorkflowExecution, error) {
	execution, err := e.store.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	if !execution.CanRetry() {
		return nil, fmt.Errorf("%w: %s (status %s, retries %d/%d)",
			ErrNotRetryable, executionID, execution.Status, execution.RetryCount, execution.MaxRetries)
	}

	execution.RetryCount++

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		return nil, err
	}

	retry, err := e.Execute(ctx, execution.TemplateID, execution.InputData, createdBy, execution.Priority)
	if err != nil {
		return nil, err
	}

	e.publish(ctx, execution.ID, events.ExecutionRetried{
		BaseEvent:      events.NewBaseEvent(events.ExecutionRetriedEvent, execution.TemplateID),
		ExecutionID:    execution.ID,
		NewExecutionID: retry.ID,
		RetryCount:     execution.RetryCount,
	})

	return retry, nil
}

// StatusDetail is the live view of one execution: the record, its node
// timeline and a completion ratio over the template's node count.
type StatusDetail struct {
	Execution *models.WorkflowExecution `json:"execution"`
	Nodes     []*models.NodeExecution   `json:"nodes"`
	Progress  float64                   `json:"progress"`
}

// Status reports the current state of an execution.
func (e *Engine) Status(ctx context.Context, executionID string) (*StatusDetail, error) {
	execution, err := e.store.ExecutionRepository().ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	records, err := e.store.NodeExecutionRepository().NodeExecutions(ctx, executionID)
	if err != nil {
		return nil, err
	}

	template, err := e.store.TemplateRepository().TemplateByID(ctx, execution.TemplateID)
	if err != nil {
		return nil, err
	}

	resolved := 0

	for _, record := range records {
		if record.Status == models.NodeStatusCompleted || record.Status == models.NodeStatusSkipped {
			resolved++
		}
	}

	progress := 0.0
	if total := len(template.Definition.Nodes); total > 0 {
		progress = float64(resolved) / float64(total)
	}

	return &StatusDetail{
		Execution: execution,
		Nodes:     records,
		Progress:  progress,
	}, nil
}

func (e *Engine) finishCompleted(ctx context.Context, execution *models.WorkflowExecution, template *models.WorkflowTemplate, ec *models.ExecutionContext) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	execution.OutputData = ec.Output
	execution.Context = ec.Snapshot()

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		e.logger.Error("failed to persist completed execution", "execution_id", execution.ID, "error", err)

		return
	}

	e.updateTemplateStats(ctx, template, true)

	e.publish(ctx, execution.ID, events.ExecutionCompleted{
		BaseEvent:     events.NewBaseEvent(events.ExecutionCompletedEvent, execution.TemplateID),
		ExecutionID:   execution.ID,
		DurationMs:    execution.Duration().Milliseconds(),
		NodesExecuted: len(ec.Executed),
		NodesSkipped:  len(ec.Skipped),
		OutputData:    ec.Output,
	})

	e.logger.Info("execution completed",
		"execution_id", execution.ID,
		"nodes_executed", len(ec.Executed),
		"nodes_skipped", len(ec.Skipped),
		"duration", execution.Duration())
}

func (e *Engine) finishFailed(ctx context.Context, execution *models.WorkflowExecution, template *models.WorkflowTemplate, nodeID string, cause error) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &now
	execution.ErrorMessage = cause.Error()

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		otelhelper.SetError(span, cause, attribute.String(otelhelper.ExecutionIDKey, execution.ID))
	}

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		e.logger.Error("failed to persist failed execution", "execution_id", execution.ID, "error", err)
	}

	e.updateTemplateStats(ctx, template, false)

	e.publish(ctx, execution.ID, events.ExecutionFailed{
		BaseEvent:    events.NewBaseEvent(events.ExecutionFailedEvent, execution.TemplateID),
		ExecutionID:  execution.ID,
		DurationMs:   execution.Duration().Milliseconds(),
		FailedNodeID: nodeID,
		Error:        cause.Error(),
	})
}

func (e *Engine) finishPaused(ctx context.Context, execution *models.WorkflowExecution, ec *models.ExecutionContext, nextNodeID string) {
	execution.Status = models.ExecutionStatusPaused
	execution.Context = ec.Snapshot()

	if err := e.store.ExecutionRepository().SaveExecution(ctx, execution); err != nil {
		e.logger.Error("failed to persist paused execution", "execution_id", execution.ID, "error", err)

		return
	}

	e.publish(ctx, execution.ID, events.ExecutionPaused{
		BaseEvent:    events.NewBaseEvent(events.ExecutionPausedEvent, execution.TemplateID),
		ExecutionID:  execution.ID,
		PausedAtNode: nextNodeID,
	})

	e.logger.Info("execution paused", "execution_id", execution.ID, "next_node", nextNodeID)
}

func (e *Engine) finishCancelled(ctx context.Context, execution *models.WorkflowExecution) {
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCancelled
	execution.CompletedAt = &now

	// The run context may already be cancelled; persist with a fresh one.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.store.ExecutionRepository().SaveExecution(persistCtx, execution); err != nil {
		e.logger.Error("failed to persist cancelled execution", "execution_id", execution.ID, "error", err)
	}

	e.publish(persistCtx, execution.ID, events.ExecutionCancelled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCancelledEvent, execution.TemplateID),
		ExecutionID: execution.ID,
	})
}

// updateTemplateStats bumps the template counters at terminal states.
func (e *Engine) updateTemplateStats(ctx context.Context, template *models.WorkflowTemplate, success bool) {
	template.ExecutionCount++

	if success {
		template.SuccessCount++
	}

	template.UpdatedAt = time.Now().UTC()

	if err := e.store.TemplateRepository().SaveTemplate(ctx, template); err != nil {
		e.logger.Warn("failed to update template stats", "template_id", template.ID, "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, key string, event events.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
