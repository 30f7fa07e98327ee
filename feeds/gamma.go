package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/internal/normalize"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POLYMARKET GAMMA - public events listing
// ═══════════════════════════════════════════════════════════════════════════════
//
// GET /events?active=true&closed=false&limit=N&offset=M&order=volume&ascending=false
//
// The body is normally a JSON array of events. Anything else is reported as a
// non-list page so pagination can stop without failing the request.
//
// ═══════════════════════════════════════════════════════════════════════════════

const (
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	ProviderGamma   = "polymarket"
)

// PageKind tags what a Gamma page body turned out to be
type PageKind uint8

const (
	PageList PageKind = iota
	PageNotList
)

// Page is one decoded Gamma listing page
type Page struct {
	Kind    PageKind
	Records []normalize.GammaRecord
}

// GammaClient reads the Polymarket Gamma API
type GammaClient struct {
	up *upstream
}

// NewGammaClient creates a Gamma client
func NewGammaClient(opts ...Option) *GammaClient {
	return &GammaClient{up: newUpstream(ProviderGamma, DefaultGammaURL, opts)}
}

// Events fetches one page of active, open events ordered by volume
func (c *GammaClient) Events(ctx context.Context, offset, limit int) (Page, error) {
	q := url.Values{}
	q.Set("active", "true")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("order", "volume")
	q.Set("ascending", "false")

	body, err := c.up.get(ctx, "/events", q)
	if err != nil {
		return Page{}, err
	}
	return decodePage(body), nil
}

func decodePage(body []byte) Page {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Page{Kind: PageNotList}
	}

	var records []normalize.GammaRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		log.Warn().Err(err).Msg("gamma page is not a list of records")
		return Page{Kind: PageNotList}
	}
	return Page{Kind: PageList, Records: records}
}
