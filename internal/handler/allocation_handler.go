package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/service"
	"github.com/tablewise/seating/internal/telemetry"
)

// AllocationHandler handles allocation HTTP requests
type AllocationHandler struct {
	allocationService service.AllocationService
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(allocationService service.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// Suggest handles POST /allocations/suggest
func (h *AllocationHandler) Suggest(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.allocation.suggest")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req service.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	span.SetAttributes(
		attribute.String("unit_id", req.UnitID),
		attribute.String("booking_id", req.BookingID),
		attribute.Int("party_size", req.PartySize),
	)

	result, err := h.allocationService.Suggest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("reason", string(result.Decision.Reason)))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// handleError converts domain errors to HTTP responses
func (h *AllocationHandler) handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	case errors.Is(err, domain.ErrFloorplanNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   err.Error(),
			Code:    "FLOORPLAN_NOT_FOUND",
			Message: "No active floorplan is configured for this unit.",
		})
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
