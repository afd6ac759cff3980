package repository

import (
	"errors"
	"strings"

	"repo-sync/core/logger"
	"repo-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// URLsRequest is the body of URL submission and validation requests.
type URLsRequest struct {
	Owner string   `json:"owner,omitempty"`
	URLs  []string `json:"urls"`
}

// Handler handles HTTP requests for repositories.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the repository routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	repos := app.Group("/repositories")
	repos.Get("/formats", h.HandleFormats)
	repos.Post("/validate", h.HandleValidate)

	owners := app.Group("/owners/:owner")
	owners.Get("/urls", h.HandleGetURLs)
	owners.Put("/urls", h.HandlePutURLs)
	owners.Get("/repositories", h.HandleListRepositories)
	owners.Post("/reconcile", h.HandleReconcile)

	app.Get("/events", h.HandleEvents)
}

// HandleFormats returns the accepted URL formats.
// @Summary Accepted URL formats
// @Description Lists an example URL for every enabled provider.
// @Tags repositories
// @Produce json
// @Success 200 {object} map[string]string "Formats"
// @Router /repositories/formats [get]
func (h *Handler) HandleFormats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"formats": h.service.HelpText()})
}

// HandleValidate validates URLs without saving them.
// @Summary Validate repository URLs
// @Description Checks each URL against the enabled providers and the ownership rule.
// @Tags repositories
// @Accept json
// @Produce json
// @Param request body URLsRequest true "Owner and URLs"
// @Success 200 {object} map[string]interface{} "Diagnostics"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /repositories/validate [post]
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req URLsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Owner) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner is required"})
	}

	diagnostics, err := h.service.Validate(c.Context(), req.Owner, req.URLs)
	if err != nil {
		l.Error("URL validation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"valid":       len(diagnostics) == 0,
		"diagnostics": diagnostics,
	})
}

// HandleGetURLs returns the declared URLs of an owner.
// @Summary Get declared URLs
// @Tags owners
// @Produce json
// @Param owner path string true "Owner"
// @Success 200 {object} map[string]interface{} "URLs"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /owners/{owner}/urls [get]
func (h *Handler) HandleGetURLs(c *fiber.Ctx) error {
	owner := c.Params("owner")
	urls, err := h.service.URLs(c.Context(), owner)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to load urls", zap.String("owner", owner), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"owner": owner, "urls": urls})
}

// HandlePutURLs replaces the declared URLs of an owner and reconciles.
// @Summary Replace declared URLs
// @Description Validates the URLs, saves them and runs a reconciliation pass. Nothing is saved when validation fails.
// @Tags owners
// @Accept json
// @Produce json
// @Param owner path string true "Owner"
// @Param request body URLsRequest true "URLs"
// @Success 200 {object} SubmitResult "Outcome"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 422 {object} SubmitResult "Validation failed"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /owners/{owner}/urls [put]
func (h *Handler) HandlePutURLs(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	owner := c.Params("owner")

	var req URLsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.service.SubmitURLs(c.Context(), owner, req.URLs)
	if errors.Is(err, ErrInvalidURLs) {
		l.Info("Submitted urls rejected", zap.String("owner", owner), zap.Int("diagnostics", len(result.Diagnostics)))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}
	if err != nil {
		l.Error("URL submission failed", zap.String("owner", owner), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(result)
}

// HandleListRepositories returns the stored repositories of an owner.
// @Summary List repositories
// @Tags owners
// @Produce json
// @Param owner path string true "Owner"
// @Success 200 {array} models.Repository "Repositories"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /owners/{owner}/repositories [get]
func (h *Handler) HandleListRepositories(c *fiber.Ctx) error {
	owner := c.Params("owner")
	repos, err := h.service.List(c.Context(), owner)
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to list repositories", zap.String("owner", owner), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(repos)
}

// HandleReconcile runs a reconciliation pass for an owner.
// @Summary Reconcile owner
// @Description Runs a pass over the owner's declared URLs. With dry_run the plan is returned and nothing is written.
// @Tags owners
// @Produce json
// @Param owner path string true "Owner"
// @Param dry_run query boolean false "Plan only"
// @Success 200 {object} reconcile.Outcome "Outcome"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /owners/{owner}/reconcile [post]
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	owner := c.Params("owner")

	run := h.service.ReconcileOwner
	if utils.ToBool(c.Query("dry_run")) {
		run = h.service.Plan
	}

	outcome, err := run(c.Context(), owner)
	if err != nil {
		l.Error("Reconciliation failed", zap.String("owner", owner), zap.Error(err))
		resp := fiber.Map{"error": err.Error()}
		if outcome != nil {
			resp["outcome"] = outcome
		}
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}

	return c.JSON(outcome)
}

// HandleEvents returns recent notification events.
// @Summary Recent events
// @Tags events
// @Produce json
// @Success 200 {array} notify.Event "Events"
// @Router /events [get]
func (h *Handler) HandleEvents(c *fiber.Ctx) error {
	return c.JSON(h.service.Events())
}
