package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/domain"
	"github.com/safarhub/ride-booking/internal/dto"
	"github.com/safarhub/ride-booking/internal/saga"
	"github.com/safarhub/ride-booking/pkg/response"
	"github.com/safarhub/ride-booking/pkg/telemetry"
)

// BookingService is the handler's view of the saga orchestrator
type BookingService interface {
	CreateBooking(ctx context.Context, req *dto.CreateBookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id, passengerID string) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
}

// BookingHandler handles booking HTTP requests
type BookingHandler struct {
	bookings BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// RegisterRoutes mounts the booking routes on a gin router group
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", h.CreateBooking)
	r.GET("/bookings/:id", h.GetBooking)
	r.POST("/bookings/:id/cancel", h.CancelBooking)
}

// CreateBooking handles POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.create")
	defer span.End()

	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("ride_id", req.RideID),
		attribute.String("passenger_id", req.PassengerID),
		attribute.Int("seats", req.Seats),
	)

	booking, err := h.bookings.CreateBooking(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.FromDomain(booking))
}

// GetBooking handles GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.get")
	defer span.End()

	booking, err := h.bookings.GetBooking(ctx, c.Param("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(booking))
}

// CancelBooking handles POST /bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.cancel")
	defer span.End()

	var req dto.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		response.BadRequest(c, err.Error())
		return
	}

	booking, err := h.bookings.CancelBooking(ctx, c.Param("id"), req.PassengerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.FromDomain(booking))
}

// handleError maps domain and saga errors to HTTP responses. Saga failures
// keep their stable reason code so callers can tell retryable failures from
// terminal ones.
func (h *BookingHandler) handleError(c *gin.Context, err error) {
	if se, ok := saga.AsSagaError(err); ok {
		switch se.Kind {
		case saga.KindClient:
			response.Error(c, http.StatusBadRequest, se.Reason, "booking failed", se.Err.Error())
		case saga.KindGateway:
			response.BadGateway(c, se.Reason, "upstream dependency failed")
		default:
			response.Error(c, http.StatusInternalServerError, se.Reason, "booking failed", "")
		}
		return
	}

	switch {
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsValidationError(err):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotBookingOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error(), "")
	case client.IsClientStatus(err):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
