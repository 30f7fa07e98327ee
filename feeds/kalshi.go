package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/web3guy0/marketboard/internal/normalize"
)

// ═══════════════════════════════════════════════════════════════════════════════
// KALSHI - public events listing with nested markets
// ═══════════════════════════════════════════════════════════════════════════════

const (
	DefaultKalshiURL = "https://api.elections.kalshi.com/trade-api/v2"
	ProviderKalshi   = "kalshi"
)

// KalshiPage is one page of the events listing
type KalshiPage struct {
	Events []normalize.KalshiEvent
	// Cursor is empty on the last page
	Cursor string
}

// KalshiClient reads the Kalshi trade API
type KalshiClient struct {
	up *upstream
}

// NewKalshiClient creates a Kalshi client
func NewKalshiClient(opts ...Option) *KalshiClient {
	return &KalshiClient{up: newUpstream(ProviderKalshi, DefaultKalshiURL, opts)}
}

// Events fetches one page of events with their markets. A body without an
// events array is an ErrInvalidFormat error.
func (c *KalshiClient) Events(ctx context.Context, limit int, cursor string) (KalshiPage, error) {
	q := url.Values{}
	q.Set("with_nested_markets", "true")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	body, err := c.up.get(ctx, "/events", q)
	if err != nil {
		return KalshiPage{}, err
	}

	var raw struct {
		Events json.RawMessage `json:"events"`
		Cursor string          `json:"cursor"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return KalshiPage{}, fmt.Errorf("kalshi: %w: %v", ErrInvalidFormat, err)
	}
	events := bytes.TrimSpace(raw.Events)
	if len(events) == 0 || events[0] != '[' {
		return KalshiPage{}, fmt.Errorf("kalshi: %w: missing events array", ErrInvalidFormat)
	}

	var page KalshiPage
	if err := json.Unmarshal(events, &page.Events); err != nil {
		return KalshiPage{}, fmt.Errorf("kalshi: %w: %v", ErrInvalidFormat, err)
	}
	page.Cursor = raw.Cursor
	return page, nil
}
