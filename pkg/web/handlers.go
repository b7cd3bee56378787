// Package web provides the HTTP endpoints starting lifecycles and reading
// their audit trail.
package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fastorc/requestshub/pkg/audit"
	"github.com/fastorc/requestshub/pkg/lifecycle"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LifecycleStarter starts and inspects lifecycle runs.
type LifecycleStarter interface {
	Start(ctx context.Context, requestID string, slaMinutes int) (lifecycle.StartResult, error)
	Status(ctx context.Context, requestID string) (*lifecycle.RunStatus, error)
}

// AuditReader reads audit events.
type AuditReader interface {
	Read(ctx context.Context, q audit.Query) audit.Page
	Configured(ctx context.Context) bool
}

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

type APIHandlers struct {
	starter   LifecycleStarter
	audit     AuditReader
	validator *validator.Validate
	checks    map[string]HealthCheck
}

func NewAPIHandlers(
	starter LifecycleStarter,
	auditReader AuditReader,
	validator *validator.Validate,
	checks map[string]HealthCheck,
) *APIHandlers {
	return &APIHandlers{
		starter:   starter,
		audit:     auditReader,
		validator: validator,
		checks:    checks,
	}
}

// RegisterRoutes mounts the handlers on app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	r := app.Group("/requests")
	r.Post("/:id/lifecycle", h.StartLifecycle)
	r.Get("/:id/lifecycle", h.GetLifecycle)
	r.Get("/:id/events", h.GetEvents)
}

func (h *APIHandlers) StartLifecycle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Request ID is required")
	}

	var req StartLifecycleRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	sla := lifecycle.DefaultSLAMinutes
	if req.SLAMinutes != nil {
		sla = *req.SLAMinutes
	}

	result, err := h.starter.Start(c.Context(), id, sla)
	if err != nil {
		if errors.Is(err, lifecycle.ErrMissingRequestID) || errors.Is(err, lifecycle.ErrInvalidRequestID) {
			return badRequest(c, err.Error())
		}

		return unavailable(c, err)
	}

	status := fiber.StatusAccepted
	if result.AlreadyStarted {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(result)
}

func (h *APIHandlers) GetLifecycle(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Request ID is required")
	}

	status, err := h.starter.Status(c.Context(), id)
	if err != nil {
		if errors.Is(err, lifecycle.ErrRunNotFound) {
			return notFound(c, "No lifecycle for request "+id)
		}

		return unavailable(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetEvents(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Request ID is required")
	}

	query, err := parseEventsQuery(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(query); err != nil {
		return badRequest(c, err.Error())
	}

	if _, err := audit.DecodeCursor(query.ContinuationToken); err != nil {
		return badRequest(c, err.Error())
	}

	page := h.audit.Read(c.Context(), query.toAuditQuery(id))

	return c.JSON(page)
}

func parseEventsQuery(c fiber.Ctx) (EventsQuery, error) {
	query := EventsQuery{
		Order:             c.Query("order"),
		ContinuationToken: c.Query("continuationToken"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return query, err
		}

		query.Limit = &limit
	}

	return query, nil
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	checkers := fiber.Map{}
	healthy := true

	for name, check := range h.checks {
		if err := check(c.Context()); err != nil {
			checkers[name] = err.Error()
			healthy = false

			continue
		}

		checkers[name] = "ok"
	}

	checkers["audit"] = "not configured"
	if h.audit.Configured(c.Context()) {
		checkers["audit"] = "ok"
	}

	status := "unhealthy"
	message := "Requests hub API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if healthy {
		status = "healthy"
		message = "Requests hub API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"checkers":  checkers,
		"timestamp": time.Now().UTC(),
	})
}
