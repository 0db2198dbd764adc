package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/dto"
	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

type slotQuerier interface {
	ListFreeSlots(ctx context.Context, query dto.SlotQuery) ([]models.Slot, error)
	ListSlots(ctx context.Context, query dto.SlotQuery) ([]models.Slot, error)
}

type slotPublisher interface {
	CreateSlots(ctx context.Context, req dto.CreateSlotsRequest) ([]models.Slot, error)
	GenerateSlots(ctx context.Context, req dto.GenerateSlotsRequest) ([]models.Slot, error)
	DeleteSlot(ctx context.Context, id string) error
	DeleteFreeSlots(ctx context.Context) (int64, error)
}

// SlotHandler serves the public calendar and the admin slot tools.
type SlotHandler struct {
	queries      slotQuerier
	availability slotPublisher
}

// NewSlotHandler constructs a SlotHandler.
func NewSlotHandler(queries slotQuerier, availability slotPublisher) *SlotHandler {
	return &SlotHandler{queries: queries, availability: availability}
}

// ListFree godoc
// @Summary List free slots
// @Description Unbooked slots for a day, a month, or from today onward
// @Tags Slots
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) ListFree(c *gin.Context) {
	var query dto.SlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid query parameters"))
		return
	}
	slots, err := h.queries.ListFreeSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots, map[string]interface{}{"count": len(slots)})
}

// List godoc
// @Summary List all slots
// @Tags Admin Slots
// @Produce json
// @Param date query string false "Day (YYYY-MM-DD)"
// @Param month query string false "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	var query dto.SlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid query parameters"))
		return
	}
	slots, err := h.queries.ListSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots, map[string]interface{}{"count": len(slots)})
}

// Create godoc
// @Summary Create slots
// @Description Slots colliding with an existing date and start time are skipped
// @Tags Admin Slots
// @Accept json
// @Produce json
// @Param payload body dto.CreateSlotsRequest true "Slots"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req dto.CreateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid slots payload"))
		return
	}
	slots, err := h.availability.CreateSlots(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots, map[string]interface{}{"requested": len(req.Slots), "created": len(slots)})
}

// Generate godoc
// @Summary Generate back-to-back slots
// @Tags Admin Slots
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSlotsRequest true "Range"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/slots/generate [post]
func (h *SlotHandler) Generate(c *gin.Context) {
	var req dto.GenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid generate payload"))
		return
	}
	slots, err := h.availability.GenerateSlots(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slots, map[string]interface{}{"created": len(slots)})
}

// Delete godoc
// @Summary Delete a free slot
// @Tags Admin Slots
// @Param id path string true "Slot ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/slots/{id} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	if err := h.availability.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteFree godoc
// @Summary Delete every free slot
// @Tags Admin Slots
// @Produce json
// @Param all query bool true "Must be true"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/slots [delete]
func (h *SlotHandler) DeleteFree(c *gin.Context) {
	if c.Query("all") != "true" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidRequest, "pass all=true to delete every free slot"))
		return
	}
	count, err := h.availability.DeleteFreeSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteSlotsResult{Deleted: count})
}
