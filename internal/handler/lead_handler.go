package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

type leadSubmitter interface {
	Submit(ctx context.Context, lead models.Lead) (*models.LeadReceipt, error)
}

// LeadHandler accepts enrollment form submissions.
type LeadHandler struct {
	service leadSubmitter
}

// NewLeadHandler constructs a LeadHandler.
func NewLeadHandler(svc leadSubmitter) *LeadHandler {
	return &LeadHandler{service: svc}
}

// Submit godoc
// @Summary Submit an enrollment lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param payload body models.Lead true "Lead"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /leads [post]
func (h *LeadHandler) Submit(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrInvalidRequest, "invalid lead payload"))
		return
	}
	receipt, err := h.service.Submit(c.Request.Context(), lead)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}
