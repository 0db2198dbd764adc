package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentix-trading/mentix-api/internal/models"
	appErrors "github.com/mentix-trading/mentix-api/pkg/errors"
)

type fakeMarket struct {
	overview *models.MarketOverview
	err      error
}

func (f *fakeMarket) Overview(context.Context) (*models.MarketOverview, error) {
	return f.overview, f.err
}

type fakeLeads struct {
	receipt *models.LeadReceipt
	err     error
	last    models.Lead
}

func (f *fakeLeads) Submit(_ context.Context, lead models.Lead) (*models.LeadReceipt, error) {
	f.last = lead
	return f.receipt, f.err
}

func TestMarketHandlerOverview(t *testing.T) {
	price := 64000.5
	h := NewMarketHandler(&fakeMarket{overview: &models.MarketOverview{
		Coins:       []models.Coin{{ID: "bitcoin", Symbol: "btc", CurrentPrice: &price}},
		LastUpdated: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}})

	c, rec := newTestContext(http.MethodGet, "/market", nil)
	h.Overview(c)

	require.Equal(t, http.StatusOK, rec.Code)
	data := string(decodeEnvelope(t, rec).Data)
	assert.Contains(t, data, `"currentPrice":64000.5`)
	assert.Contains(t, data, `"fearGreed":null`)
}

func TestMarketHandlerUpstreamFailure(t *testing.T) {
	h := NewMarketHandler(&fakeMarket{err: appErrors.Clone(appErrors.ErrExternalService, "market data unavailable")})

	c, rec := newTestContext(http.MethodGet, "/market", nil)
	h.Overview(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLeadHandlerSubmit(t *testing.T) {
	svc := &fakeLeads{receipt: &models.LeadReceipt{Eligible: true}}
	h := NewLeadHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/leads", map[string]interface{}{
		"full_name":    "Sam Okafor",
		"email":        "sam@example.com",
		"age":          27,
		"ambitions":    "Trade full time",
		"experience":   "Two years of swing trading",
		"budget":       "above-1000",
		"country_code": "+234",
		"whatsapp":     "8012345678",
	})
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Sam Okafor", svc.last.FullName)
	assert.Equal(t, 27, svc.last.Age)
	assert.JSONEq(t, `{"eligible":true}`, string(decodeEnvelope(t, rec).Data))
}

func TestLeadHandlerRejectsMalformedJSON(t *testing.T) {
	svc := &fakeLeads{}
	h := NewLeadHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/leads", `{"age":"old"}`)
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.last.FullName)
}
