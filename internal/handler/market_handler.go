package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/response"
)

type marketOverviewer interface {
	Overview(ctx context.Context) (*models.MarketOverview, error)
}

// MarketHandler serves the live market board.
type MarketHandler struct {
	service marketOverviewer
}

// NewMarketHandler constructs a MarketHandler.
func NewMarketHandler(svc marketOverviewer) *MarketHandler {
	return &MarketHandler{service: svc}
}

// Overview godoc
// @Summary Market overview
// @Description Tracked coin prices with global totals and the fear and greed index when available
// @Tags Market
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /market [get]
func (h *MarketHandler) Overview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}
