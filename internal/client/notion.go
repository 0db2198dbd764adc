package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mentix-trading/mentix-api/internal/models"
	"github.com/mentix-trading/mentix-api/pkg/config"
)

const notionVersion = "2022-06-28"

// NotionClient records sessions as pages in a Notion calendar database.
type NotionClient struct {
	cfg  config.NotionConfig
	http *http.Client
}

// NewNotionClient returns nil unless both the key and database are set.
func NewNotionClient(cfg config.NotionConfig, hc *http.Client) *NotionClient {
	if cfg.APIKey == "" || cfg.DatabaseID == "" {
		return nil
	}
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return &NotionClient{cfg: cfg, http: hc}
}

// CreateEvent adds the booking to the calendar database.
func (c *NotionClient) CreateEvent(ctx context.Context, details models.BookingDetails) error {
	if c == nil {
		return ErrNotConfigured
	}

	properties := map[string]interface{}{
		"Name": map[string]interface{}{
			"title": []map[string]interface{}{
				{"text": map[string]string{"content": "Coaching: " + details.ClientName}},
			},
		},
		"Date": map[string]interface{}{
			"date": map[string]string{
				"start": details.StartsAt.UTC().Format(time.RFC3339),
				"end":   details.EndsAt().UTC().Format(time.RFC3339),
			},
		},
		"Email":  map[string]string{"email": details.ClientEmail},
		"Status": map[string]interface{}{"select": map[string]string{"name": "Confirmed"}},
	}
	if details.JoinURL != "" {
		properties["Zoom Link"] = map[string]string{"url": details.JoinURL}
	}

	return do(ctx, c.http, request{
		service: "notion",
		method:  http.MethodPost,
		url:     strings.TrimRight(c.cfg.APIURL, "/") + "/pages",
		headers: map[string]string{
			"Authorization":  "Bearer " + c.cfg.APIKey,
			"Notion-Version": notionVersion,
		},
		body: map[string]interface{}{
			"parent":     map[string]string{"database_id": c.cfg.DatabaseID},
			"properties": properties,
		},
	}, nil)
}
