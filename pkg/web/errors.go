package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/docuflow/docuflow/pkg/engine"
	"github.com/docuflow/docuflow/pkg/persistence"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleError maps persistence and engine errors onto problem responses.
func handleError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsTemplateNotFound(err):
		return notFound(c, "template not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution not found")

	case persistence.IsVariableNotFound(err):
		return notFound(c, "variable not found")

	case errors.Is(err, engine.ErrExecutionNotRunning),
		errors.Is(err, engine.ErrNotResumable),
		errors.Is(err, engine.ErrNotRetryable),
		errors.Is(err, engine.ErrTemplateNotExecutable):
		return conflict(c, err.Error())

	default:
		var executionErr *engine.ExecutionError
		if errors.As(err, &executionErr) {
			return badRequest(c, err.Error())
		}

		return internalError(c, err)
	}
}
