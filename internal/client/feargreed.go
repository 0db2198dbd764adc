package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

// FearGreedClient reads the alternative.me Fear & Greed index.
type FearGreedClient struct {
	url  string
	http *http.Client
}

// NewFearGreedClient returns nil when no feed URL is configured.
func NewFearGreedClient(cfg config.MarketConfig, hc *http.Client) *FearGreedClient {
	if cfg.FearGreedURL == "" {
		return nil
	}
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &FearGreedClient{url: cfg.FearGreedURL, http: hc}
}

type fearGreedPayload struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
	} `json:"data"`
}

// FearGreed returns the latest reading.
func (c *FearGreedClient) FearGreed(ctx context.Context) (*models.FearGreed, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	var payload fearGreedPayload
	if err := do(ctx, c.http, request{service: "fear & greed", method: http.MethodGet, url: c.url}, &payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 {
		return nil, errors.New("fear & greed feed is empty")
	}
	value, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		return nil, fmt.Errorf("parse fear & greed value: %w", err)
	}
	return &models.FearGreed{Value: value, Classification: payload.Data[0].ValueClassification}, nil
}
