package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tablewise/seating/internal/domain"
	"github.com/tablewise/seating/internal/service"
	"github.com/tablewise/seating/internal/telemetry"
)

// CapacityHandler handles capacity HTTP requests
type CapacityHandler struct {
	capacityService service.CapacityService
}

// NewCapacityHandler creates a new capacity handler
func NewCapacityHandler(capacityService service.CapacityService) *CapacityHandler {
	return &CapacityHandler{
		capacityService: capacityService,
	}
}

// ApplyLedger handles POST /capacity/apply. Callers that hit a conflict must
// retry with the same trace id.
func (h *CapacityHandler) ApplyLedger(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.capacity.apply")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req service.ApplyLedgerRequest
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
		attribute.String("trace_id", req.TraceID),
	)

	result, err := h.capacityService.ApplyLedger(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("replayed", result.Replayed))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// GetCapacity handles GET /capacity/:date
func (h *CapacityHandler) GetCapacity(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.capacity.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	unitID := c.Query("unit_id")
	dateKey := c.Param("date")

	span.SetAttributes(
		attribute.String("unit_id", unitID),
		attribute.String("date_key", dateKey),
	)

	if unitID == "" {
		span.SetStatus(codes.Error, "unit_id required")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unit_id required",
			Code:    "INVALID_REQUEST",
			Message: "Please provide unit_id query parameter",
		})
		return
	}

	view, err := h.capacityService.GetCapacity(ctx, unitID, dateKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, view)
}

// handleError converts domain errors to HTTP responses
func (h *CapacityHandler) handleError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	case domain.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_FOUND",
		})
	case domain.IsConflictError(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   err.Error(),
			Code:    "TRANSACTION_CONFLICT",
			Message: "Retry the request with the same trace_id.",
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
