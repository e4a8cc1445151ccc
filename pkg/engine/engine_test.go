package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/persistence/file"
	"github.com/docuflow/docuflow/pkg/secrets"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	eng := NewEngine(store, newTestRegistry(t), nil, opts...)

	return eng, store
}

func saveActiveTemplate(t *testing.T, store persistence.Persistence, definition models.Definition) *models.WorkflowTemplate {
	t.Helper()

	template := &models.WorkflowTemplate{
		ID:         uuid.New().String(),
		Name:       "test workflow",
		Status:     models.TemplateStatusActive,
		Definition: definition,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.TemplateRepository().SaveTemplate(context.Background(), template))

	return template
}

func awaitStatus(t *testing.T, eng *Engine, executionID string, want models.ExecutionStatus) *StatusDetail {
	t.Helper()

	var detail *StatusDetail

	require.Eventually(t, func() bool {
		d, err := eng.Status(context.Background(), executionID)
		if err != nil {
			return false
		}

		detail = d

		return d.Execution.Status == want
	}, 10*time.Second, 10*time.Millisecond, "execution %s never reached %s", executionID, want)

	return detail
}

func TestExecute_CompletesBranchWorkflow(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "check", Type: "condition", Config: map[string]any{
				"condition_expression": "amount > 5",
				"inputs": map[string]any{
					"data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "branch-a", Type: "transform", Config: map[string]any{
				"transform_script": "branch-a",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "branch-b", Type: "transform", Config: map[string]any{
				"transform_script": "branch-b",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "finish", Type: "end", Config: map[string]any{
				"inputs": map[string]any{
					"result": map[string]any{"source": "branch-a.transformed_data"},
				},
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "check"},
			{Source: "check", Target: "branch-a", Condition: "true"},
			{Source: "check", Target: "branch-b", Condition: "false"},
			{Source: "branch-a", Target: "finish"},
			{Source: "branch-b", Target: "finish"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, map[string]any{"amount": float64(10)}, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, models.PriorityNormal, execution.Priority)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)

	assert.Equal(t, "branch-a", detail.Execution.OutputData)
	assert.InDelta(t, 1.0, detail.Progress, 0.001)

	byNode := make(map[string]models.NodeStatus)
	for _, record := range detail.Nodes {
		byNode[record.NodeID] = record.Status
	}

	assert.Equal(t, models.NodeStatusCompleted, byNode["begin"])
	assert.Equal(t, models.NodeStatusCompleted, byNode["check"])
	assert.Equal(t, models.NodeStatusCompleted, byNode["branch-a"])
	assert.Equal(t, models.NodeStatusSkipped, byNode["branch-b"])
	assert.Equal(t, models.NodeStatusCompleted, byNode["finish"])

	updated, err := store.TemplateRepository().TemplateByID(context.Background(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ExecutionCount)
	assert.Equal(t, 1, updated.SuccessCount)
}

func TestExecute_CompletesWithoutStartTypedNode(t *testing.T) {
	eng, store := newTestEngine(t)

	// The entry point is whatever has no incoming edges, not the start type.
	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "wait", Type: "delay", Config: map[string]any{"delay_seconds": 0.0}},
			{ID: "finish", Type: "end"},
		},
		Edges: []models.EdgeDef{
			{Source: "wait", Target: "finish"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
	assert.InDelta(t, 1.0, detail.Progress, 0.001)
}

func TestExecute_RejectsInactiveTemplate(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{{ID: "begin", Type: "start"}},
	})
	template.Status = models.TemplateStatusDraft
	require.NoError(t, store.TemplateRepository().SaveTemplate(context.Background(), template))

	_, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	assert.ErrorContains(t, err, "only active templates")
}

func TestExecute_UnknownTemplate(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Execute(context.Background(), "missing", nil, "tester", "")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestExecute_NodeFailureFailsExecution(t *testing.T) {
	eng, store := newTestEngine(t)

	// The condition node's data input is required and nothing binds it.
	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "check", Type: "condition", Config: map[string]any{
				"condition_expression": "amount > 5",
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "check"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusFailed)

	assert.Contains(t, detail.Execution.ErrorMessage, "required input missing")

	byNode := make(map[string]models.NodeStatus)
	for _, record := range detail.Nodes {
		byNode[record.NodeID] = record.Status
	}

	assert.Equal(t, models.NodeStatusCompleted, byNode["begin"])
	assert.Equal(t, models.NodeStatusFailed, byNode["check"])

	updated, err := store.TemplateRepository().TemplateByID(context.Background(), template.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.ExecutionCount)
	assert.Equal(t, 0, updated.SuccessCount)
}

func TestExecute_FailureMarksSpansErrored(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	eng, store := newTestEngine(t, WithTracer(provider.Tracer("engine-test")))

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "check", Type: "condition", Config: map[string]any{
				"condition_expression": "amount > 5",
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "check"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	awaitStatus(t, eng, execution.ID, models.ExecutionStatusFailed)

	// The workflow span ends after the status is persisted; poll the recorder.
	statuses := make(map[string]codes.Code)

	require.Eventually(t, func() bool {
		for _, span := range recorder.Ended() {
			statuses[span.Name()] = span.Status().Code
		}

		return statuses["workflow.execute"] == codes.Error && statuses["node.execute"] == codes.Error
	}, 5*time.Second, 10*time.Millisecond, "spans never recorded error status: %v", statuses)
}

func TestPauseAndResume(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "wait", Type: "delay", Config: map[string]any{"delay_seconds": 0.3}},
			{ID: "shape", Type: "transform", Config: map[string]any{
				"transform_script": "shaped",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "finish", Type: "end", Config: map[string]any{
				"inputs": map[string]any{
					"result": map[string]any{"source": "shape.transformed_data"},
				},
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "wait"},
			{Source: "wait", Target: "shape"},
			{Source: "shape", Target: "finish"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	// The run handle is registered before Execute returns, so the pause
	// request lands while the walk is inside the delay node.
	require.NoError(t, eng.Pause(context.Background(), execution.ID))

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusPaused)
	assert.NotEmpty(t, detail.Execution.Context)

	resumed, err := eng.Resume(context.Background(), execution.ID, "tester")
	require.NoError(t, err)
	assert.Equal(t, execution.ID, resumed.ID)

	detail = awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
	assert.Equal(t, "shaped", detail.Execution.OutputData)
}

func TestResume_UsesPersistedSnapshot(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "shape", Type: "transform", Config: map[string]any{
				"transform_script": "fresh-value",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "finish", Type: "end", Config: map[string]any{
				"inputs": map[string]any{
					"result": map[string]any{"source": "shape.transformed_data"},
				},
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "shape"},
			{Source: "shape", Target: "finish"},
		},
	})

	started := time.Now().UTC()
	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		TemplateID: template.ID,
		Status:     models.ExecutionStatusPaused,
		Priority:   models.PriorityNormal,
		CreatedAt:  started,
		StartedAt:  &started,
		MaxRetries: 3,
		Context: map[string]any{
			"variables": map[string]any{},
			"node_outputs": map[string]any{
				"begin": map[string]any{"workflow_data": map[string]any{}},
				"shape": map[string]any{"transformed_data": "restored-value"},
			},
			"executed": []string{"begin", "shape"},
			"skipped":  []string{},
		},
	}
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), execution))

	_, err := eng.Resume(context.Background(), execution.ID, "tester")
	require.NoError(t, err)

	// The cached shape output flows into the end node; a re-run would have
	// produced "fresh-value" instead.
	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
	assert.Equal(t, "restored-value", detail.Execution.OutputData)
}

func TestResume_ConcurrentCallsStartOneWalker(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "wait", Type: "delay", Config: map[string]any{"delay_seconds": 0.3}},
			{ID: "finish", Type: "end"},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "wait"},
			{Source: "wait", Target: "finish"},
		},
	})

	started := time.Now().UTC()
	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		TemplateID: template.ID,
		Status:     models.ExecutionStatusPaused,
		Priority:   models.PriorityNormal,
		CreatedAt:  started,
		StartedAt:  &started,
		MaxRetries: 3,
		Context: map[string]any{
			"variables": map[string]any{},
			"node_outputs": map[string]any{
				"begin": map[string]any{"workflow_data": map[string]any{}},
			},
			"executed": []string{"begin"},
			"skipped":  []string{},
		},
	}
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), execution))

	errs := make(chan error, 2)

	for range 2 {
		go func() {
			_, err := eng.Resume(context.Background(), execution.ID, "tester")
			errs <- err
		}()
	}

	first, second := <-errs, <-errs

	// Exactly one call may claim the run; the loser gets ErrNotResumable
	// whether it lost the claim or read the already-running status.
	if first == nil {
		assert.ErrorIs(t, second, ErrNotResumable)
	} else {
		require.NoError(t, second)
		assert.ErrorIs(t, first, ErrNotResumable)
	}

	awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
}

func TestResume_RejectsNonPausedExecution(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{{ID: "begin", Type: "start"}},
	})

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		TemplateID: template.ID,
		Status:     models.ExecutionStatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), execution))

	_, err := eng.Resume(context.Background(), execution.ID, "tester")
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestPause_NotRunning(t *testing.T) {
	eng, _ := newTestEngine(t)

	err := eng.Pause(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrExecutionNotRunning)
}

func TestCancel_PendingExecution(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{{ID: "begin", Type: "start"}},
	})

	execution := &models.WorkflowExecution{
		ID:         uuid.New().String(),
		TemplateID: template.ID,
		Status:     models.ExecutionStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), execution))

	require.NoError(t, eng.Cancel(context.Background(), execution.ID, "tester"))

	stored, err := store.ExecutionRepository().ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCancelled, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	// A finished execution cannot be cancelled again.
	assert.Error(t, eng.Cancel(context.Background(), execution.ID, "tester"))
}

func TestCancel_InFlightExecution(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "wait", Type: "delay", Config: map[string]any{"delay_seconds": 30}},
			{ID: "finish", Type: "end"},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "wait"},
			{Source: "wait", Target: "finish"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	require.NoError(t, eng.Cancel(context.Background(), execution.ID, "tester"))

	// Cancelling aborts the delay node's context; the run must land on
	// cancelled, not failed, well before the delay would have elapsed.
	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCancelled)
	assert.Empty(t, detail.Execution.ErrorMessage)
}

func TestRetry(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "check", Type: "condition", Config: map[string]any{
				"condition_expression": "amount > 5",
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "check"},
		},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", models.PriorityHigh)
	require.NoError(t, err)

	awaitStatus(t, eng, execution.ID, models.ExecutionStatusFailed)

	retry, err := eng.Retry(context.Background(), execution.ID, "tester")
	require.NoError(t, err)
	assert.NotEqual(t, execution.ID, retry.ID)
	assert.Equal(t, template.ID, retry.TemplateID)
	assert.Equal(t, models.PriorityHigh, retry.Priority)

	original, err := store.ExecutionRepository().ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, original.RetryCount)

	awaitStatus(t, eng, retry.ID, models.ExecutionStatusFailed)

	// Exhausted retries are rejected.
	original.RetryCount = original.MaxRetries
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), original))

	_, err = eng.Retry(context.Background(), execution.ID, "tester")
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestRetry_RejectsNonFailedExecution(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{{ID: "begin", Type: "start"}},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)

	_, err = eng.Retry(context.Background(), execution.ID, "tester")
	assert.ErrorIs(t, err, ErrNotRetryable)
}

func TestExecute_DecryptsVariables(t *testing.T) {
	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	box, err := secrets.NewBox(key)
	require.NoError(t, err)

	eng, store := newTestEngine(t, WithSecretBox(box))

	sealed, err := box.Seal("secret-token")
	require.NoError(t, err)

	require.NoError(t, store.VariableRepository().SaveVariable(context.Background(), &models.WorkflowVariable{
		ID:        uuid.New().String(),
		Name:      "token",
		Scope:     models.ScopeGlobal,
		Type:      models.VariableTypeString,
		Value:     sealed,
		Encrypted: true,
		CreatedAt: time.Now().UTC(),
	}))

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "shape", Type: "transform", Config: map[string]any{
				"transform_script": "{{ .vars.token }}",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "finish", Type: "end", Config: map[string]any{
				"inputs": map[string]any{
					"result": map[string]any{"source": "shape.transformed_data"},
				},
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "shape"},
			{Source: "shape", Target: "finish"},
		},
	})

	require.NoError(t, store.VariableRepository().SaveVariable(context.Background(), &models.WorkflowVariable{
		ID:         uuid.New().String(),
		Name:       "bucket",
		Scope:      models.ScopeTemplate,
		TemplateID: template.ID,
		Type:       models.VariableTypeString,
		Value:      "archive",
		CreatedAt:  time.Now().UTC(),
	}))

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
	assert.Equal(t, "secret-token", detail.Execution.OutputData)
}

func TestExecute_EncryptedVariableWithoutKeyFails(t *testing.T) {
	eng, store := newTestEngine(t)

	require.NoError(t, store.VariableRepository().SaveVariable(context.Background(), &models.WorkflowVariable{
		ID:        uuid.New().String(),
		Name:      "token",
		Scope:     models.ScopeGlobal,
		Value:     "sealed-something",
		Encrypted: true,
		CreatedAt: time.Now().UTC(),
	}))

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{{ID: "begin", Type: "start"}},
	})

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusFailed)
	assert.Contains(t, detail.Execution.ErrorMessage, "no encryption key")
}

func TestVariableScopePrecedence(t *testing.T) {
	eng, store := newTestEngine(t)

	template := saveActiveTemplate(t, store, models.Definition{
		Nodes: []models.NodeDef{
			{ID: "begin", Type: "start"},
			{ID: "shape", Type: "transform", Config: map[string]any{
				"transform_script": "{{ .vars.region }}",
				"inputs": map[string]any{
					"input_data": map[string]any{"source": "begin.workflow_data"},
				},
			}},
			{ID: "finish", Type: "end", Config: map[string]any{
				"inputs": map[string]any{
					"result": map[string]any{"source": "shape.transformed_data"},
				},
			}},
		},
		Edges: []models.EdgeDef{
			{Source: "begin", Target: "shape"},
			{Source: "shape", Target: "finish"},
		},
	})

	require.NoError(t, store.VariableRepository().SaveVariable(context.Background(), &models.WorkflowVariable{
		ID:        uuid.New().String(),
		Name:      "region",
		Scope:     models.ScopeGlobal,
		Value:     "global-region",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.VariableRepository().SaveVariable(context.Background(), &models.WorkflowVariable{
		ID:         uuid.New().String(),
		Name:       "region",
		Scope:      models.ScopeTemplate,
		TemplateID: template.ID,
		Value:      "template-region",
		CreatedAt:  time.Now().UTC(),
	}))

	execution, err := eng.Execute(context.Background(), template.ID, nil, "tester", "")
	require.NoError(t, err)

	detail := awaitStatus(t, eng, execution.ID, models.ExecutionStatusCompleted)
	assert.Equal(t, "template-region", detail.Execution.OutputData)
}
