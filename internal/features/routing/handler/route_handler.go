package handler

import (
	"errors"

	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/features/routing/domain"
	"doodhly-fieldops/internal/features/routing/service"

	"github.com/gofiber/fiber/v2"
)

// RouteHandler handles HTTP requests for run-sheet sequencing.
type RouteHandler struct {
	routeService *service.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routeService *service.RouteService) *RouteHandler {
	return &RouteHandler{
		routeService: routeService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// OptimizeRequest is the run sheet submitted for resequencing.
// Each stop is kept as a raw record so fields this service does not
// understand survive the round trip.
type OptimizeRequest struct {
	// PartnerID identifies the delivery partner; when present the
	// optimized run sheet is cached for offline re-sync.
	PartnerID string `json:"partner_id"`
	// Stops are the raw run-sheet entries.
	Stops []map[string]interface{} `json:"stops"`
}

// SavingsEstimate is a coarse display-only figure, not a committed delta.
type SavingsEstimate struct {
	// DistanceMeters is the open-path length reduction.
	DistanceMeters float64 `json:"distance_meters"`
	// TimeSeconds is the distance saving at an assumed urban speed.
	TimeSeconds float64 `json:"time_seconds"`
}

// OptimizeResponse carries the reordered run sheet.
type OptimizeResponse struct {
	// Stops are the input records in the new visiting order with
	// updated sequence numbers.
	Stops []map[string]interface{} `json:"stops"`
	// Savings is the estimated gain of the new order.
	Savings SavingsEstimate `json:"savings"`
}

// Optimize resequences a partner's run sheet.
func (h *RouteHandler) Optimize(c *fiber.Ctx) error {
	var req OptimizeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}

	stops := make([]domain.Stop, 0, len(req.Stops))
	for _, rec := range req.Stops {
		stops = append(stops, domain.StopFromRecord(rec))
	}

	result := h.routeService.Optimize(stops)

	records := make([]map[string]interface{}, 0, len(result.Stops))
	for _, stop := range result.Stops {
		rec := stop.Record
		if rec == nil {
			rec = map[string]interface{}{"id": stop.ID}
		}
		rec["sequence"] = stop.Sequence
		records = append(records, rec)
	}

	if req.PartnerID != "" {
		if err := h.routeService.SaveRunSheet(c.Context(), req.PartnerID, result.Stops); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Message: err.Error(),
				RayID:   c.Locals("requestid").(string),
			})
		}
	}

	return c.JSON(OptimizeResponse{
		Stops: records,
		Savings: SavingsEstimate{
			DistanceMeters: result.MetersSaved(),
			TimeSeconds:    result.SecondsSaved(),
		},
	})
}

// GetRunSheet returns the last cached run sheet for a partner.
func (h *RouteHandler) GetRunSheet(c *fiber.Ctx) error {
	partnerID := c.Params("partnerId")
	if partnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "partner id is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	stops, err := h.routeService.GetRunSheet(c.Context(), partnerID)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Message: "no run sheet cached for partner",
				RayID:   c.Locals("requestid").(string),
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Message: err.Error(),
			RayID:   c.Locals("requestid").(string),
		})
	}

	records := make([]map[string]interface{}, 0, len(stops))
	for _, stop := range stops {
		records = append(records, stop.Record)
	}

	return c.JSON(fiber.Map{"stops": records})
}
