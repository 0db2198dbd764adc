package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/internal/service"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

type bookingCoordinator interface {
	Reserve(ctx context.Context, req dto.CreateBookingRequest) (*models.ReservationResult, error)
	Update(ctx context.Context, id string, req dto.UpdateBookingRequest) (*models.Booking, error)
}

type bookingQuerier interface {
	ListBookings(ctx context.Context, query dto.BookingQuery) ([]models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
}

type bookingExporter interface {
	ExportBookings(ctx context.Context, query dto.ExportBookingsQuery) (*service.ExportResult, error)
}

// BookingHandler serves reservations and the admin booking tools.
type BookingHandler struct {
	reservations bookingCoordinator
	queries      bookingQuerier
	exports      bookingExporter
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(reservations bookingCoordinator, queries bookingQuerier, exports bookingExporter) *BookingHandler {
	return &BookingHandler{reservations: reservations, queries: queries, exports: exports}
}

// Create godoc
// @Summary Book a slot
// @Description Reserves a free slot. When the meeting link could not be created the booking still succeeds and meta.notice says so.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid booking payload"))
		return
	}

	result, err := h.reservations.Reserve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{"meeting_pending": result.MeetingPending}
	if result.MeetingPending {
		meta["notice"] = service.MeetingPendingNotice
	}
	response.Created(c, result, meta)
}

// List godoc
// @Summary List bookings
// @Description Newest first, each with its slot
// @Tags Admin Bookings
// @Produce json
// @Param status query string false "confirmed|completed|cancelled|rescheduled"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var query dto.BookingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid query parameters"))
		return
	}
	bookings, err := h.queries.ListBookings(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bookings, map[string]interface{}{"count": len(bookings)})
}

// Get godoc
// @Summary Get booking
// @Tags Admin Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.queries.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, booking)
}

// Update godoc
// @Summary Change booking status or slot
// @Description new_slot_id reschedules; otherwise status cancels, completes or confirms
// @Tags Admin Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.UpdateBookingRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/bookings/{id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	var req dto.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid booking update"))
		return
	}
	booking, err := h.reservations.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, booking)
}

// Export godoc
// @Summary Export bookings
// @Tags Admin Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv|pdf"
// @Param status query string false "Booking status"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /admin/bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	var query dto.ExportBookingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid query parameters"))
		return
	}
	result, err := h.exports.ExportBookings(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
