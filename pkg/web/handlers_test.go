package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuflow/docuflow/pkg/engine"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/persistence/file"
	"github.com/docuflow/docuflow/pkg/registry"
	"github.com/docuflow/docuflow/pkg/secrets"
	"github.com/docuflow/docuflow/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry()
	require.NoError(t, registry.RegisterBuiltins(reg, registry.BuiltinDeps{}))

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	box, err := secrets.NewBox(key)
	require.NoError(t, err)

	eng := engine.NewEngine(store, reg, nil, engine.WithSecretBox(box))
	validate := validator.New(validator.WithRequiredStructEnabled())
	handlers := web.NewAPIHandlers(store, eng, reg, validate, box)

	app := fiber.New()

	templates := app.Group("/templates")
	templates.Get("/", handlers.GetTemplates)
	templates.Post("/", handlers.CreateTemplate)
	templates.Get("/:id", handlers.GetTemplate)
	templates.Patch("/:id", handlers.UpdateTemplate)
	templates.Delete("/:id", handlers.DeleteTemplate)
	templates.Post("/:id/activate", handlers.ActivateTemplate)
	templates.Post("/:id/archive", handlers.ArchiveTemplate)
	templates.Post("/:id/duplicate", handlers.DuplicateTemplate)
	templates.Get("/:id/statistics", handlers.TemplateStatistics)
	templates.Post("/:id/execute", handlers.ExecuteTemplate)

	executions := app.Group("/executions")
	executions.Get("/", handlers.GetExecutions)
	executions.Get("/:id", handlers.GetExecution)
	executions.Get("/:id/status", handlers.ExecutionStatus)
	executions.Get("/:id/logs", handlers.ExecutionLogs)
	executions.Post("/:id/pause", handlers.PauseExecution)
	executions.Post("/:id/resume", handlers.ResumeExecution)
	executions.Post("/:id/cancel", handlers.CancelExecution)
	executions.Post("/:id/retry", handlers.RetryExecution)

	app.Get("/node-types", handlers.GetNodeTypes)
	app.Get("/node-types/:type", handlers.GetNodeType)

	variables := app.Group("/variables")
	variables.Get("/", handlers.GetVariables)
	variables.Post("/", handlers.CreateVariable)
	variables.Patch("/:id", handlers.UpdateVariable)
	variables.Delete("/:id", handlers.DeleteVariable)

	app.Get("/health", handlers.Health)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	_ = resp.Body.Close()

	return resp, raw
}

func minimalDefinition() map[string]any {
	return map[string]any{
		"nodes": []any{
			map[string]any{"id": "begin", "type": "start"},
			map[string]any{"id": "finish", "type": "end"},
		},
		"edges": []any{
			map[string]any{"source": "begin", "target": "finish"},
		},
	}
}

func createTemplate(t *testing.T, app *fiber.App) models.WorkflowTemplate {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/templates/", web.CreateTemplateRequest{
		Name:       "document intake",
		Definition: minimalDefinition(),
		CreatedBy:  "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var template models.WorkflowTemplate

	require.NoError(t, json.Unmarshal(body, &template))

	return template
}

func TestCreateTemplate(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	assert.NotEmpty(t, template.ID)
	assert.Equal(t, "document intake", template.Name)
	assert.Equal(t, models.TemplateStatusDraft, template.Status)
	assert.Len(t, template.Definition.Nodes, 2)
}

func TestCreateTemplate_Validation(t *testing.T) {
	app, _ := setupTestApp(t)

	// Name too short.
	resp, _ := doJSON(t, app, http.MethodPost, "/templates/", web.CreateTemplateRequest{
		Name:       "ab",
		Definition: minimalDefinition(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Structurally invalid definition.
	resp, body := doJSON(t, app, http.MethodPost, "/templates/", web.CreateTemplateRequest{
		Name: "broken workflow",
		Definition: map[string]any{
			"nodes": []any{map[string]any{"id": "a"}},
			"edges": []any{},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "type")

	// Edge referencing an undeclared node.
	resp, _ = doJSON(t, app, http.MethodPost, "/templates/", web.CreateTemplateRequest{
		Name: "dangling edge",
		Definition: map[string]any{
			"nodes": []any{map[string]any{"id": "a", "type": "start"}},
			"edges": []any{map[string]any{"source": "a", "target": "ghost"}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetTemplate_NotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTemplateLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	// Activate validates the graph and flips the status.
	resp, body := doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var activated models.WorkflowTemplate

	require.NoError(t, json.Unmarshal(body, &activated))
	assert.Equal(t, models.TemplateStatusActive, activated.Status)

	// Active templates cannot be edited.
	name := "renamed workflow"

	resp, _ = doJSON(t, app, http.MethodPatch, "/templates/"+template.ID, web.UpdateTemplateRequest{Name: &name})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Archive, then activation is rejected.
	resp, _ = doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/activate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestActivateTemplate_RejectsInvalidGraph(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/templates/", web.CreateTemplateRequest{
		Name: "cyclic workflow",
		Definition: map[string]any{
			"nodes": []any{
				map[string]any{"id": "begin", "type": "start"},
				map[string]any{"id": "a", "type": "transform", "config": map[string]any{"transform_script": "a"}},
				map[string]any{"id": "b", "type": "transform", "config": map[string]any{"transform_script": "b"}},
			},
			"edges": []any{
				map[string]any{"source": "begin", "target": "a"},
				map[string]any{"source": "a", "target": "b"},
				map[string]any{"source": "b", "target": "a"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var template models.WorkflowTemplate

	require.NoError(t, json.Unmarshal(body, &template))

	resp, body = doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/activate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "cycle")
}

func TestUpdateTemplate(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	name := "updated intake"
	description := "handles scanned documents"

	resp, body := doJSON(t, app, http.MethodPatch, "/templates/"+template.ID, web.UpdateTemplateRequest{
		Name:        &name,
		Description: &description,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated models.WorkflowTemplate

	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, description, updated.Description)
}

func TestDuplicateTemplate(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	resp, body := doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var duplicate models.WorkflowTemplate

	require.NoError(t, json.Unmarshal(body, &duplicate))
	assert.NotEqual(t, template.ID, duplicate.ID)
	assert.Equal(t, template.Name+" (copy)", duplicate.Name)
	assert.Equal(t, models.TemplateStatusDraft, duplicate.Status)
	assert.Zero(t, duplicate.ExecutionCount)
}

func TestDeleteTemplate(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	resp, _ := doJSON(t, app, http.MethodDelete, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/templates/"+template.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteTemplate(t *testing.T) {
	app, _ := setupTestApp(t)

	template := createTemplate(t, app)

	// Draft templates cannot run.
	resp, _ := doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/templates/"+template.ID+"/execute", web.ExecuteRequest{
		InputData: map[string]any{"document": "invoice.pdf"},
		Priority:  models.PriorityHigh,
		CreatedBy: "alice",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var execution models.WorkflowExecution

	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, template.ID, execution.TemplateID)
	assert.Equal(t, models.PriorityHigh, execution.Priority)

	// The run is asynchronous; the status endpoint converges on completed.
	require.Eventually(t, func() bool {
		resp, body := doJSON(t, app, http.MethodGet, "/executions/"+execution.ID+"/status", nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}

		var detail struct {
			Execution models.WorkflowExecution `json:"execution"`
		}

		if err := json.Unmarshal(body, &detail); err != nil {
			return false
		}

		return detail.Execution.Status == models.ExecutionStatusCompleted
	}, 10*time.Second, 20*time.Millisecond)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+execution.ID+"/logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs struct {
		Logs []models.NodeExecution `json:"logs"`
	}

	require.NoError(t, json.Unmarshal(body, &logs))
	assert.Len(t, logs.Logs, 2)
}

func TestExecutionControls_ErrorMapping(t *testing.T) {
	app, store := setupTestApp(t)

	// Pause of a run that is not in flight conflicts.
	resp, _ := doJSON(t, app, http.MethodPost, "/executions/nope/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Resume of a completed execution conflicts, too.
	execution := &models.WorkflowExecution{
		ID:         "done-1",
		TemplateID: "tpl-x",
		Status:     models.ExecutionStatusCompleted,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.ExecutionRepository().SaveExecution(context.Background(), execution))

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/done-1/resume", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/executions/done-1/retry", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown execution maps to 404.
	resp, _ = doJSON(t, app, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetNodeTypes(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/node-types", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		NodeTypes []models.NodeSchema `json:"node_types"`
	}

	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Len(t, payload.NodeTypes, 10)

	resp, body = doJSON(t, app, http.MethodGet, "/node-types/condition", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var schema models.NodeSchema
	require.NoError(t, json.Unmarshal(body, &schema))
	assert.Equal(t, "condition", schema.Type)

	resp, _ = doJSON(t, app, http.MethodGet, "/node-types/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVariables(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/variables/", web.CreateVariableRequest{
		Name:  "region",
		Scope: models.ScopeGlobal,
		Value: "eu",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var variable models.WorkflowVariable

	require.NoError(t, json.Unmarshal(body, &variable))
	assert.Equal(t, "eu", variable.Value)

	// Scope must be one of the known tiers.
	resp, _ = doJSON(t, app, http.MethodPost, "/variables/", web.CreateVariableRequest{
		Name:  "bad",
		Scope: "universe",
		Value: "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Update and delete round-trip.
	description := "deployment region"

	resp, _ = doJSON(t, app, http.MethodPatch, "/variables/"+variable.ID, web.UpdateVariableRequest{
		Description: &description,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/variables/"+variable.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/variables/"+variable.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVariables_EncryptedValuesAreRedacted(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/variables/", web.CreateVariableRequest{
		Name:      "token",
		Scope:     models.ScopeGlobal,
		Value:     "super-secret",
		Encrypted: true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created models.WorkflowVariable

	require.NoError(t, json.Unmarshal(body, &created))
	assert.Nil(t, created.Value)
	assert.True(t, created.Encrypted)

	resp, body = doJSON(t, app, http.MethodGet, "/variables/?scope=global", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listed struct {
		Variables []models.WorkflowVariable `json:"variables"`
	}

	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Variables, 1)
	assert.Nil(t, listed.Variables[0].Value)
	assert.NotContains(t, string(body), "super-secret")
}

func TestHealth(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
