package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/feeds"
	"github.com/web3guy0/marketboard/internal/aggregate"
	"github.com/web3guy0/marketboard/internal/metrics"
	"github.com/web3guy0/marketboard/internal/normalize"
	"github.com/web3guy0/marketboard/internal/query"
	"github.com/web3guy0/marketboard/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKET SERVICE - Central orchestrator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow:
//   Feed → Paginate → Normalize → Dedup/Filter → Sort → View
//
// Every call fetches fresh upstream data; nothing is shared between requests.
//
// ═══════════════════════════════════════════════════════════════════════════════

// GammaSource is the Polymarket listing the service reads
type GammaSource interface {
	Events(ctx context.Context, offset, limit int) (feeds.Page, error)
}

// KalshiSource is the Kalshi listing the service reads
type KalshiSource interface {
	Events(ctx context.Context, limit int, cursor string) (feeds.KalshiPage, error)
}

// Config bounds upstream reads
type Config struct {
	GammaPageSize int
	GammaMaxPages int
	// KalshiFetchLimit is the events page size of the single Kalshi fetch
	KalshiFetchLimit int
}

// Service builds market views from the upstream feeds
type Service struct {
	gamma   GammaSource
	kalshi  KalshiSource
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithServiceMetrics records dedup counts
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service
func NewService(gamma GammaSource, kalshi KalshiSource, cfg Config, opts ...ServiceOption) *Service {
	if cfg.GammaPageSize <= 0 {
		cfg.GammaPageSize = aggregate.DefaultPageSize
	}
	if cfg.GammaMaxPages <= 0 {
		cfg.GammaMaxPages = aggregate.DefaultMaxPages
	}
	if cfg.KalshiFetchLimit <= 0 {
		cfg.KalshiFetchLimit = 200
	}

	s := &Service{
		gamma:  gamma,
		kalshi: kalshi,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ═══════════════════════════════════════════════════════════════════════════════
// POLYMARKET
// ═══════════════════════════════════════════════════════════════════════════════

// PolymarketMarkets returns the de-duplicated open Polymarket markets,
// highest volume first. Any upstream error status fails the whole call.
func (s *Service) PolymarketMarkets(ctx context.Context) (aggregate.Result, error) {
	fetch := func(ctx context.Context, offset, limit int) ([]normalize.GammaRecord, bool, error) {
		page, err := s.gamma.Events(ctx, offset, limit)
		if err != nil {
			return nil, false, err
		}
		return page.Records, page.Kind == feeds.PageList, nil
	}

	records, err := aggregate.Paginate(ctx, fetch, aggregate.Options{
		PageSize: s.cfg.GammaPageSize,
		MaxPages: s.cfg.GammaMaxPages,
	})
	if err != nil {
		return aggregate.Result{}, fmt.Errorf("polymarket markets: %w", err)
	}

	now := s.now()
	markets := make([]types.Market, 0, len(records))
	for _, r := range records {
		markets = append(markets, normalize.Polymarket(r, now))
	}

	res := aggregate.Merge(markets)
	s.metrics.AddDedupSkipped(res.Skipped)

	log.Info().
		Int("fetched", len(records)).
		Int("kept", len(res.Markets)).
		Int("skipped", res.Skipped).
		Msg("📊 Polymarket markets aggregated")

	return res, nil
}

// ViewQuery selects a slice of the Polymarket collection
type ViewQuery struct {
	Search     string
	Categories []string
	Sort       types.SortKey
	// Loads is how many times "load more" was pressed
	Loads int
}

// View is a windowed query result
type View struct {
	Markets      []types.Market
	TotalMatches int
	Visible      int
	HasMore      bool
}

// PolymarketView filters, sorts and windows the Polymarket collection
func (s *Service) PolymarketView(ctx context.Context, q ViewQuery) (View, error) {
	res, err := s.PolymarketMarkets(ctx)
	if err != nil {
		return View{}, err
	}

	matches := query.Filter{Search: q.Search, Categories: q.Categories, Sort: q.Sort}.Apply(res.Markets)

	pager := query.NewPager(query.DefaultStep)
	for i := 0; i < q.Loads; i++ {
		pager.More()
	}

	return View{
		Markets:      query.Window(pager, matches),
		TotalMatches: len(matches),
		Visible:      pager.Visible(),
		HasMore:      pager.HasMore(len(matches)),
	}, nil
}

// CategorySection is the head of one category in the overview
type CategorySection struct {
	Category string         `json:"category"`
	Markets  []types.Market `json:"markets"`
}

// Overview returns the top n markets of every category, volume first. The
// New section holds recently created markets whatever their category.
func (s *Service) Overview(ctx context.Context, n int) ([]CategorySection, error) {
	res, err := s.PolymarketMarkets(ctx)
	if err != nil {
		return nil, err
	}

	var recent []types.Market
	for _, m := range res.Markets {
		if m.IsNew {
			recent = append(recent, m)
		}
	}

	sections := make([]CategorySection, 0, len(types.Categories()))
	for _, cat := range types.Categories() {
		var top []types.Market
		if cat == types.CategoryNew {
			top = query.Slice(recent, 0, n)
		} else {
			top = query.TopByCategory(res.Markets, cat, n)
		}
		if len(top) == 0 {
			continue
		}
		sections = append(sections, CategorySection{Category: cat, Markets: top})
	}
	return sections, nil
}

// MarketDetail is one market with its display rows
type MarketDetail struct {
	Market   types.Market       `json:"market"`
	Outcomes []query.OutcomeRow `json:"outcomes"`
}

// PolymarketMarket looks up one aggregated market by id
func (s *Service) PolymarketMarket(ctx context.Context, id string) (MarketDetail, bool, error) {
	res, err := s.PolymarketMarkets(ctx)
	if err != nil {
		return MarketDetail{}, false, err
	}
	for _, m := range res.Markets {
		if m.ID == id {
			return MarketDetail{Market: m, Outcomes: query.OutcomeRows(m)}, true, nil
		}
	}
	return MarketDetail{}, false, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// KALSHI
// ═══════════════════════════════════════════════════════════════════════════════

// KalshiQuery selects a page of Kalshi markets
type KalshiQuery struct {
	Limit      int
	Offset     int
	Sort       types.SortKey
	Categories []string
}

// KalshiResult is one page of Kalshi markets
type KalshiResult struct {
	Markets []types.KalshiMarket
	// Categories lists every category in the unfiltered fetch
	Categories []string
	// Total counts the markets matching the category filter
	Total int
}

// KalshiMarkets fetches Kalshi once, then filters, sorts and pages locally
func (s *Service) KalshiMarkets(ctx context.Context, q KalshiQuery) (KalshiResult, error) {
	all, err := s.kalshiMarkets(ctx)
	if err != nil {
		return KalshiResult{}, err
	}

	filtered := query.FilterCategories(all, q.Categories)
	sorted := query.SortKalshi(filtered, q.Sort)

	return KalshiResult{
		Markets:    query.Slice(sorted, q.Offset, q.Limit),
		Categories: query.UniqueCategories(all),
		Total:      len(filtered),
	}, nil
}

// EventQuery selects grouped Kalshi events
type EventQuery struct {
	Search     string
	Categories []string
	Sort       types.SortKey
}

// EventView is an event group with its most likely outcome
type EventView struct {
	types.EventGroup
	MostLikely *types.KalshiMarket `json:"mostLikely,omitempty"`
}

// KalshiEvents groups the matching Kalshi markets by event
func (s *Service) KalshiEvents(ctx context.Context, q EventQuery) ([]EventView, error) {
	all, err := s.kalshiMarkets(ctx)
	if err != nil {
		return nil, err
	}

	matches := query.Filter{Search: q.Search, Categories: q.Categories, Sort: q.Sort}.ApplyKalshi(all)
	groups := query.SortGroups(query.GroupByEvent(matches), q.Sort)

	views := make([]EventView, 0, len(groups))
	for _, g := range groups {
		v := EventView{EventGroup: g}
		if best, ok := query.MostLikely(g.Markets); ok {
			v.MostLikely = &best
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) kalshiMarkets(ctx context.Context) ([]types.KalshiMarket, error) {
	page, err := s.kalshi.Events(ctx, s.cfg.KalshiFetchLimit, "")
	if err != nil {
		return nil, fmt.Errorf("kalshi markets: %w", err)
	}

	markets := normalize.KalshiEvents(page.Events, s.now())

	log.Info().
		Int("events", len(page.Events)).
		Int("markets", len(markets)).
		Msg("📊 Kalshi markets fetched")

	return markets, nil
}
