// Package web provides HTTP handlers and REST API endpoints for workflow
// templates, executions and variables.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/docuflow/docuflow/pkg/engine"
	"github.com/docuflow/docuflow/pkg/models"
	"github.com/docuflow/docuflow/pkg/persistence"
	"github.com/docuflow/docuflow/pkg/registry"
	"github.com/docuflow/docuflow/pkg/secrets"
)

type APIHandlers struct {
	store     persistence.Persistence
	engine    *engine.Engine
	registry  *registry.Registry
	validator *validator.Validate
	box       *secrets.Box
}

func NewAPIHandlers(
	store persistence.Persistence,
	eng *engine.Engine,
	reg *registry.Registry,
	validate *validator.Validate,
	box *secrets.Box,
) *APIHandlers {
	return &APIHandlers{
		store:     store,
		engine:    eng,
		registry:  reg,
		validator: validate,
		box:       box,
	}
}

// Templates

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	opts := persistence.ListTemplatesOptions{
		CreatedBy: c.Query("created_by"),
	}

	if status := c.Query("status"); status != "" {
		s := models.TemplateStatus(status)
		opts.Status = &s
	}

	var err error

	opts.Limit, opts.Offset, err = parsePagination(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	templates, err := h.store.TemplateRepository().Templates(c.Context(), opts)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates": templates,
		"pagination": fiber.Map{
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	template, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	definition, err := decodeDefinition(req.Definition)
	if err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()
	template := &models.WorkflowTemplate{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Version:     "1",
		Status:      models.TemplateStatusDraft,
		Definition:  *definition,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.TemplateRepository().SaveTemplate(c.Context(), template); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	var req UpdateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if template.Status != models.TemplateStatusDraft {
		return conflict(c, "only draft templates can be edited")
	}

	if req.Name != nil {
		template.Name = *req.Name
	}

	if req.Description != nil {
		template.Description = *req.Description
	}

	if req.Definition != nil {
		definition, err := decodeDefinition(req.Definition)
		if err != nil {
			return badRequest(c, err.Error())
		}

		template.Definition = *definition
	}

	template.UpdatedAt = time.Now().UTC()

	if err := h.store.TemplateRepository().SaveTemplate(c.Context(), template); err != nil {
		return handleError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	if err := h.store.TemplateRepository().DeleteTemplate(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ActivateTemplate transitions a draft to active. The definition must build
// into a valid execution graph: this is where cycles and unknown node types
// are rejected for good.
func (h *APIHandlers) ActivateTemplate(c fiber.Ctx) error {
	template, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if template.Status == models.TemplateStatusArchived {
		return conflict(c, "archived templates cannot be activated")
	}

	if _, err := engine.BuildGraph(c.Context(), h.registry, template.ID, &template.Definition); err != nil {
		return badRequest(c, err.Error())
	}

	template.Status = models.TemplateStatusActive
	template.UpdatedAt = time.Now().UTC()

	if err := h.store.TemplateRepository().SaveTemplate(c.Context(), template); err != nil {
		return handleError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) ArchiveTemplate(c fiber.Ctx) error {
	template, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	template.Status = models.TemplateStatusArchived
	template.UpdatedAt = time.Now().UTC()

	if err := h.store.TemplateRepository().SaveTemplate(c.Context(), template); err != nil {
		return handleError(c, err)
	}

	return c.JSON(template)
}

// DuplicateTemplate copies a template into a fresh draft with zeroed counters.
func (h *APIHandlers) DuplicateTemplate(c fiber.Ctx) error {
	source, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	now := time.Now().UTC()
	duplicate := &models.WorkflowTemplate{
		ID:          uuid.New().String(),
		Name:        source.Name + " (copy)",
		Description: source.Description,
		Version:     "1",
		Status:      models.TemplateStatusDraft,
		Definition:  source.Definition,
		CreatedBy:   source.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.TemplateRepository().SaveTemplate(c.Context(), duplicate); err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(duplicate)
}

func (h *APIHandlers) TemplateStatistics(c fiber.Ctx) error {
	template, err := h.store.TemplateRepository().TemplateByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(StatisticsResponse{
		TemplateID:     template.ID,
		ExecutionCount: template.ExecutionCount,
		SuccessCount:   template.SuccessCount,
		SuccessRate:    template.SuccessRate(),
	})
}

// Executions

func (h *APIHandlers) ExecuteTemplate(c fiber.Ctx) error {
	var req ExecuteRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, err.Error())
		}
	}

	execution, err := h.engine.Execute(c.Context(), c.Params("id"), req.InputData, req.CreatedBy, req.Priority)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	opts := persistence.ListExecutionsOptions{
		TemplateID: c.Query("template_id"),
		CreatedBy:  c.Query("created_by"),
	}

	if status := c.Query("status"); status != "" {
		s := models.ExecutionStatus(status)
		opts.Status = &s
	}

	var err error

	opts.Limit, opts.Offset, err = parsePagination(c)
	if err != nil {
		return badRequest(c, "invalid pagination parameters: "+err.Error())
	}

	executions, err := h.store.ExecutionRepository().Executions(c.Context(), opts)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions": executions,
		"pagination": fiber.Map{
			"limit":  opts.Limit,
			"offset": opts.Offset,
		},
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.store.ExecutionRepository().ExecutionByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) ExecutionStatus(c fiber.Ctx) error {
	detail, err := h.engine.Status(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(detail)
}

// ExecutionLogs returns the per-node timeline of a run.
func (h *APIHandlers) ExecutionLogs(c fiber.Ctx) error {
	if _, err := h.store.ExecutionRepository().ExecutionByID(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	records, err := h.store.NodeExecutionRepository().NodeExecutions(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"logs": records})
}

func (h *APIHandlers) PauseExecution(c fiber.Ctx) error {
	if err := h.engine.Pause(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"status": "pause_requested"})
}

func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	var req ResumeRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON format")
		}
	}

	execution, err := h.engine.Resume(c.Context(), c.Params("id"), req.ResumedBy)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON format")
		}
	}

	if err := h.engine.Cancel(c.Context(), c.Params("id"), req.CancelledBy); err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{"status": "cancel_requested"})
}

func (h *APIHandlers) RetryExecution(c fiber.Ctx) error {
	var req RetryRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "invalid JSON format")
		}
	}

	execution, err := h.engine.Retry(c.Context(), c.Params("id"), req.CreatedBy)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

// Node catalog

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.registry.AllSchemas()})
}

func (h *APIHandlers) GetNodeType(c fiber.Ctx) error {
	schema, err := h.registry.Schema(c.Params("type"))
	if err != nil {
		return notFound(c, "unknown node type")
	}

	return c.JSON(schema)
}

// Variables

func (h *APIHandlers) GetVariables(c fiber.Ctx) error {
	scope := models.VariableScope(c.Query("scope", string(models.ScopeGlobal)))

	variables, err := h.store.VariableRepository().Variables(c.Context(), scope, c.Query("scope_id"))
	if err != nil {
		return handleError(c, err)
	}

	// Never leak sealed values.
	for _, variable := range variables {
		if variable.Encrypted {
			variable.Value = nil
		}
	}

	return c.JSON(fiber.Map{"variables": variables})
}

func (h *APIHandlers) CreateVariable(c fiber.Ctx) error {
	var req CreateVariableRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	value := req.Value

	if req.Encrypted {
		if h.box == nil {
			return conflict(c, "encryption is not configured")
		}

		plaintext, ok := req.Value.(string)
		if !ok {
			return badRequest(c, "encrypted variables must carry a string value")
		}

		sealed, err := h.box.Seal(plaintext)
		if err != nil {
			return internalError(c, err)
		}

		value = sealed
	}

	varType := req.Type
	if varType == "" {
		varType = models.VariableTypeString
	}

	now := time.Now().UTC()
	variable := &models.WorkflowVariable{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Scope:       req.Scope,
		Type:        varType,
		Value:       value,
		TemplateID:  req.TemplateID,
		ExecutionID: req.ExecutionID,
		Encrypted:   req.Encrypted,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.VariableRepository().SaveVariable(c.Context(), variable); err != nil {
		return handleError(c, err)
	}

	if variable.Encrypted {
		variable.Value = nil
	}

	return c.Status(fiber.StatusCreated).JSON(variable)
}

func (h *APIHandlers) UpdateVariable(c fiber.Ctx) error {
	var req UpdateVariableRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON format")
	}

	variable, err := h.store.VariableRepository().VariableByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	if req.Description != nil {
		variable.Description = *req.Description
	}

	if req.Value != nil {
		if variable.Encrypted {
			if h.box == nil {
				return conflict(c, "encryption is not configured")
			}

			plaintext, ok := req.Value.(string)
			if !ok {
				return badRequest(c, "encrypted variables must carry a string value")
			}

			sealed, err := h.box.Seal(plaintext)
			if err != nil {
				return internalError(c, err)
			}

			variable.Value = sealed
		} else {
			variable.Value = req.Value
		}
	}

	variable.UpdatedAt = time.Now().UTC()

	if err := h.store.VariableRepository().SaveVariable(c.Context(), variable); err != nil {
		return handleError(c, err)
	}

	if variable.Encrypted {
		variable.Value = nil
	}

	return c.JSON(variable)
}

func (h *APIHandlers) DeleteVariable(c fiber.Ctx) error {
	if err := h.store.VariableRepository().DeleteVariable(c.Context(), c.Params("id")); err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Health

func (h *APIHandlers) Health(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	storageCheck := "ok"

	if err := h.store.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		storageCheck = err.Error()
	}

	registryCheck := "ok"
	if len(h.registry.Types()) == 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		registryCheck = "no node types registered"
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"storage":  storageCheck,
			"registry": registryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// decodeDefinition validates a raw definition document and decodes it into
// the typed model.
func decodeDefinition(document map[string]any) (*models.Definition, error) {
	if err := models.ValidateDefinitionDocument(document); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}

	var definition models.Definition
	if err := json.Unmarshal(raw, &definition); err != nil {
		return nil, err
	}

	if err := definition.Validate(); err != nil {
		return nil, err
	}

	return &definition, nil
}

func parsePagination(c fiber.Ctx) (limit, offset int, err error) {
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return limit, offset, nil
}
