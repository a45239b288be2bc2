package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uatops/uat-router/internal/api/dto"
	"github.com/uatops/uat-router/internal/service"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

// RoutingHandler serves single and batch routing requests.
type RoutingHandler struct {
	service *service.RoutingService
}

// NewRoutingHandler constructs handler.
func NewRoutingHandler(routingService *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{service: routingService}
}

// Route POST /api/uat-routing.
func (h *RoutingHandler) Route(c *fiber.Ctx) error {
	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	if req.Identifier() == "" {
		return apperrors.NewValidationError("id is required", nil)
	}

	outcome, err := h.service.Route(c.UserContext(), service.RouteInput{ID: req.Identifier(), Project: req.Project})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewRoutingResponse(outcome))
}

// RouteBatch POST /api/uat-routing-batch.
func (h *RoutingHandler) RouteBatch(c *fiber.Ctx) error {
	var req dto.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	ids := req.Identifiers()
	if len(ids) == 0 {
		return apperrors.NewValidationError("ids must be a non-empty array", nil)
	}

	items, err := h.service.RouteBatch(c.UserContext(), service.BatchInput{IDs: ids, Project: req.Project})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBatchResponse(items))
}
