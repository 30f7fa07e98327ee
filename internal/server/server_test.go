package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/marketboard/bot"
	"github.com/web3guy0/marketboard/core"
	"github.com/web3guy0/marketboard/exec"
	"github.com/web3guy0/marketboard/feeds"
	"github.com/web3guy0/marketboard/internal/aggregate"
	"github.com/web3guy0/marketboard/internal/metrics"
	"github.com/web3guy0/marketboard/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMarkets struct {
	markets  []types.Market
	kalshi   core.KalshiResult
	events   []core.EventView
	sections []core.CategorySection
	err      error
	panic    bool

	gotView   core.ViewQuery
	gotKalshi core.KalshiQuery
	gotEvents core.EventQuery
	gotN      int
}

func (f *fakeMarkets) PolymarketMarkets(context.Context) (aggregate.Result, error) {
	if f.panic {
		panic("boom")
	}
	return aggregate.Result{Markets: f.markets}, f.err
}

func (f *fakeMarkets) PolymarketView(_ context.Context, q core.ViewQuery) (core.View, error) {
	f.gotView = q
	return core.View{Markets: f.markets, TotalMatches: len(f.markets), Visible: 24}, f.err
}

func (f *fakeMarkets) Overview(_ context.Context, n int) ([]core.CategorySection, error) {
	f.gotN = n
	return f.sections, f.err
}

func (f *fakeMarkets) PolymarketMarket(_ context.Context, id string) (core.MarketDetail, bool, error) {
	for _, m := range f.markets {
		if m.ID == id {
			return core.MarketDetail{Market: m}, true, f.err
		}
	}
	return core.MarketDetail{}, false, f.err
}

func (f *fakeMarkets) KalshiMarkets(_ context.Context, q core.KalshiQuery) (core.KalshiResult, error) {
	f.gotKalshi = q
	return f.kalshi, f.err
}

func (f *fakeMarkets) KalshiEvents(_ context.Context, q core.EventQuery) ([]core.EventView, error) {
	f.gotEvents = q
	return f.events, f.err
}

type fakeTrader struct {
	resp  *exec.OrderResponse
	err   error
	ready bool

	mu  sync.Mutex
	got []exec.OrderRequest
}

func (f *fakeTrader) PlaceOrder(_ context.Context, req exec.OrderRequest) (*exec.OrderResponse, error) {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeTrader) Ready() bool { return f.ready }

type recordingNotifier struct {
	placed []bot.OrderNotice
	failed []string
}

func (r *recordingNotifier) NotifyOrder(n bot.OrderNotice) { r.placed = append(r.placed, n) }
func (r *recordingNotifier) NotifyOrderFailed(kind, _ string) {
	r.failed = append(r.failed, kind)
}

func do(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w, out
}

// ═══════════════════════════════════════════════════════════════════════════════
// MARKETS
// ═══════════════════════════════════════════════════════════════════════════════

func TestMarkets(t *testing.T) {
	fm := &fakeMarkets{markets: []types.Market{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet, "/api/markets", "")

	if w.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", w.Code, body)
	}
	if body["message"] != "All markets sorted by volume (2 total)" || body["totalMarkets"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestMarketsUpstreamFailure(t *testing.T) {
	fm := &fakeMarkets{err: &feeds.StatusError{Provider: "polymarket", StatusCode: 500}}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet, "/api/markets", "")

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if body["success"] != false || body["message"] != "Error retrieving market data" {
		t.Errorf("body = %v", body)
	}
	if ms, ok := body["markets"].([]any); !ok || len(ms) != 0 {
		t.Errorf("markets = %#v, want empty list", body["markets"])
	}
	if !strings.Contains(body["error"].(string), "500") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestMarketsEmpty(t *testing.T) {
	w, body := do(t, New(&fakeMarkets{}, &fakeTrader{}), http.MethodGet, "/api/markets", "")

	if w.Code != http.StatusOK || body["success"] != false {
		t.Fatalf("status %d body %v", w.Code, body)
	}
	if body["message"] != "No markets available from Polymarket API" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestMarketView(t *testing.T) {
	fm := &fakeMarkets{markets: []types.Market{{ID: "1"}}}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet,
		"/api/markets/view?search=btc&categories=Crypto,Economy&sort=liquidity&visible=48", "")

	if w.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", w.Code, body)
	}
	q := fm.gotView
	if q.Search != "btc" || q.Sort != types.SortLiquidity || q.Loads != 1 || len(q.Categories) != 2 {
		t.Errorf("query = %+v", q)
	}
}

func TestLoadsFor(t *testing.T) {
	tests := map[int]int{0: 0, 24: 0, 25: 1, 48: 1, 49: 2, 100: 4}
	for visible, want := range tests {
		if got := loadsFor(visible); got != want {
			t.Errorf("loadsFor(%d) = %d, want %d", visible, got, want)
		}
	}
}

func TestOverviewAndDetail(t *testing.T) {
	fm := &fakeMarkets{
		markets:  []types.Market{{ID: "42", Title: "Answer"}},
		sections: []core.CategorySection{{Category: "Sports", Markets: []types.Market{{ID: "42"}}}},
	}
	s := New(fm, &fakeTrader{})

	w, body := do(t, s, http.MethodGet, "/api/markets/overview?n=500", "")
	if w.Code != http.StatusOK || fm.gotN != maxOverviewN {
		t.Errorf("overview status %d n %d", w.Code, fm.gotN)
	}
	if secs, _ := body["sections"].([]any); len(secs) != 1 {
		t.Errorf("sections = %v", body["sections"])
	}

	w, body = do(t, s, http.MethodGet, "/api/markets/42", "")
	if w.Code != http.StatusOK || body["market"].(map[string]any)["title"] != "Answer" {
		t.Errorf("detail status %d body %v", w.Code, body)
	}

	w, _ = do(t, s, http.MethodGet, "/api/markets/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown market status = %d", w.Code)
	}
}

func TestKalshiMarkets(t *testing.T) {
	fm := &fakeMarkets{kalshi: core.KalshiResult{
		Markets:    []types.KalshiMarket{{Ticker: "T1"}},
		Categories: []string{"Politics", "Economy"},
		Total:      7,
	}}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet,
		"/api/kalshi/markets?limit=10&offset=5&sort=liquidity&categories=Politics&categories[]=economy", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	q := fm.gotKalshi
	if q.Limit != 10 || q.Offset != 5 || q.Sort != types.SortLiquidity {
		t.Errorf("query = %+v", q)
	}
	if strings.Join(q.Categories, "|") != "Politics|economy" {
		t.Errorf("categories = %v", q.Categories)
	}
	if body["totalMarkets"] != float64(7) || body["message"] != "Markets retrieved successfully" {
		t.Errorf("body = %v", body)
	}
	if cats, _ := body["categories"].([]any); len(cats) != 2 {
		t.Errorf("categories = %v", body["categories"])
	}
}

func TestKalshiMarketsDefaultsAndFailure(t *testing.T) {
	fm := &fakeMarkets{err: errors.New("kalshi markets: invalid response format")}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet, "/api/kalshi/markets?limit=abc", "")

	if fm.gotKalshi.Limit != defaultKalshiLimit || fm.gotKalshi.Offset != 0 || fm.gotKalshi.Sort != types.SortVolume {
		t.Errorf("defaults = %+v", fm.gotKalshi)
	}
	if w.Code != http.StatusBadGateway || body["success"] != false || body["totalMarkets"] != float64(0) {
		t.Errorf("status %d body %v", w.Code, body)
	}
	if !strings.Contains(body["message"].(string), "invalid response format") {
		t.Errorf("message = %v", body["message"])
	}
}

func TestKalshiEvents(t *testing.T) {
	best := types.KalshiMarket{Ticker: "B"}
	fm := &fakeMarkets{events: []core.EventView{{
		EventGroup: types.EventGroup{EventTicker: "EV", EventTitle: "Event"},
		MostLikely: &best,
	}}}
	w, body := do(t, New(fm, &fakeTrader{}), http.MethodGet, "/api/kalshi/events?search=fed", "")

	if w.Code != http.StatusOK || body["totalEvents"] != float64(1) {
		t.Fatalf("status %d body %v", w.Code, body)
	}
	if fm.gotEvents.Search != "fed" {
		t.Errorf("search = %q", fm.gotEvents.Search)
	}
	ev := body["events"].([]any)[0].(map[string]any)
	if _, ok := ev["mostLikely"]; !ok {
		t.Errorf("event = %v", ev)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// ORDERS
// ═══════════════════════════════════════════════════════════════════════════════

func fieldError(t *testing.T, body map[string]any, field string) string {
	t.Helper()
	details, ok := body["details"].(map[string]any)
	if !ok {
		t.Fatalf("no details in %v", body)
	}
	f, ok := details[field].(map[string]any)
	if !ok {
		return ""
	}
	msgs, _ := f["_errors"].([]any)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0].(string)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
		want  string
	}{
		{"negative price", `{"tokenID":"1","price":-0.5,"size":10,"side":"BUY"}`, "price", "Price must be positive"},
		{"zero size", `{"tokenID":"1","price":0.5,"size":0,"side":"BUY"}`, "size", "Size must be positive"},
		{"empty token", `{"tokenID":"","price":0.5,"size":10,"side":"BUY"}`, "tokenID", "Token ID is required"},
		{"missing token", `{"price":0.5,"size":10,"side":"BUY"}`, "tokenID", "Required"},
		{"price as string", `{"tokenID":"1","price":"0.5","size":10,"side":"BUY"}`, "price", "Expected number, received string"},
		{"bad side", `{"tokenID":"1","price":0.5,"size":10,"side":"HOLD"}`, "side", "Side must be either BUY or SELL"},
		{"missing side", `{"tokenID":"1","price":0.5,"size":10}`, "side", "Side must be either BUY or SELL"},
		{"bad order type", `{"tokenID":"1","price":0.5,"size":10,"side":"SELL","orderType":"IOC"}`, "orderType", "Order type must be GTC, GTD, or FOK"},
		{"null expiration", `{"tokenID":"1","price":0.5,"size":10,"side":"SELL","expiration":null}`, "expiration", "Expected number, received null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trader := &fakeTrader{}
			w, body := do(t, New(&fakeMarkets{}, trader), http.MethodPost, "/api/place-order", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if body["error"] != "Validation error" || body["success"] != false {
				t.Errorf("body = %v", body)
			}
			if got := fieldError(t, body, tt.field); got != tt.want {
				t.Errorf("%s error = %q, want %q", tt.field, got, tt.want)
			}
			if len(trader.got) != 0 {
				t.Error("invalid order reached the trader")
			}
		})
	}
}

func TestPlaceOrderNotJSON(t *testing.T) {
	w, body := do(t, New(&fakeMarkets{}, &fakeTrader{}), http.MethodPost, "/api/place-order", `[1,2]`)
	if w.Code != http.StatusBadRequest || body["error"] != "Validation error" {
		t.Errorf("status %d body %v", w.Code, body)
	}
}

func TestPlaceOrderGTDNeedsExpiration(t *testing.T) {
	trader := &fakeTrader{}
	w, body := do(t, New(&fakeMarkets{}, trader), http.MethodPost, "/api/place-order",
		`{"tokenID":"1","price":0.5,"size":10,"side":"BUY","orderType":"GTD"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if body["error"] != "Expiration timestamp is required for GTD orders" {
		t.Errorf("error = %v", body["error"])
	}
	if len(trader.got) != 0 {
		t.Error("order reached the trader")
	}
}

func TestPlaceOrderSuccess(t *testing.T) {
	trader := &fakeTrader{resp: &exec.OrderResponse{Success: true, OrderID: "0xabc", Status: "live"}}
	notifier := &recordingNotifier{}
	m := metrics.New()
	s := New(&fakeMarkets{}, trader, WithNotifier(notifier), WithMetrics(m))

	w, body := do(t, s, http.MethodPost, "/api/place-order",
		`{"tokenID":"123","price":0.55,"size":10,"side":"BUY"}`)

	if w.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", w.Code, body)
	}
	if body["order"].(map[string]any)["orderID"] != "0xabc" {
		t.Errorf("order = %v", body["order"])
	}

	if len(trader.got) != 1 {
		t.Fatalf("trader calls = %d", len(trader.got))
	}
	req := trader.got[0]
	if req.OrderType != exec.OrderTypeGTC || req.FeeRateBps != 100 || req.Side != exec.SideBuy {
		t.Errorf("defaults not applied: %+v", req)
	}
	if !req.Price.Equal(decimal.RequireFromString("0.55")) || !req.Size.Equal(decimal.NewFromInt(10)) {
		t.Errorf("amounts = %s x %s", req.Price, req.Size)
	}

	if len(notifier.placed) != 1 || notifier.placed[0].OrderID != "0xabc" {
		t.Errorf("notifications = %+v", notifier.placed)
	}

	w, _ = do(t, s, http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), `marketboard_orders_total{result="placed"} 1`) {
		t.Errorf("metrics missing order count")
	}
}

func TestPlaceOrderErrorKinds(t *testing.T) {
	tests := []struct {
		kind exec.ErrorKind
		want int
	}{
		{exec.KindMissingCredentials, http.StatusUnauthorized},
		{exec.KindInsufficientFunds, http.StatusBadRequest},
		{exec.KindInvalidTokenID, http.StatusBadRequest},
		{exec.KindNetwork, http.StatusInternalServerError},
		{exec.KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			trader := &fakeTrader{err: &exec.Error{Kind: tt.kind, Message: "nope"}}
			notifier := &recordingNotifier{}
			w, body := do(t, New(&fakeMarkets{}, trader, WithNotifier(notifier)), http.MethodPost, "/api/place-order",
				`{"tokenID":"1","price":0.5,"size":10,"side":"SELL","orderType":"FOK"}`)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if body["errorType"] != string(tt.kind) || body["error"] != "nope" || body["success"] != false {
				t.Errorf("body = %v", body)
			}
			if len(notifier.failed) != 1 || len(notifier.placed) != 0 {
				t.Errorf("notifications = %v / %v", notifier.placed, notifier.failed)
			}
		})
	}
}

func TestPlaceOrderUnclassifiedError(t *testing.T) {
	trader := &fakeTrader{err: errors.New("weird")}
	w, body := do(t, New(&fakeMarkets{}, trader), http.MethodPost, "/api/place-order",
		`{"tokenID":"1","price":0.5,"size":10,"side":"BUY","orderType":"GTD","expiration":1741700000}`)

	if w.Code != http.StatusInternalServerError || body["error"] != "An unexpected error occurred" {
		t.Errorf("status %d body %v", w.Code, body)
	}
	if trader.got[0].Expiration != 1741700000 {
		t.Errorf("expiration = %d", trader.got[0].Expiration)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PLUMBING
// ═══════════════════════════════════════════════════════════════════════════════

func TestHealthz(t *testing.T) {
	w, body := do(t, New(&fakeMarkets{}, &fakeTrader{ready: true}), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || body["status"] != "ok" || body["trading"] != true {
		t.Errorf("status %d body %v", w.Code, body)
	}
}

func TestRequestID(t *testing.T) {
	s := New(&fakeMarkets{}, &fakeTrader{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}

	w, _ = do(t, s, http.MethodGet, "/healthz", "")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Errorf("generated id = %q", w.Header().Get("X-Request-ID"))
	}
}

func TestPanicRecovery(t *testing.T) {
	w, body := do(t, New(&fakeMarkets{panic: true}, &fakeTrader{}), http.MethodGet, "/api/markets", "")
	if w.Code != http.StatusInternalServerError || body["error"] != "An unexpected error occurred" {
		t.Errorf("status %d body %v", w.Code, body)
	}
}

func TestNotFound(t *testing.T) {
	w, body := do(t, New(&fakeMarkets{}, &fakeTrader{}), http.MethodGet, "/api/nothing", "")
	if w.Code != http.StatusNotFound || body["success"] != false {
		t.Errorf("status %d body %v", w.Code, body)
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := metrics.New()
	s := New(&fakeMarkets{markets: []types.Market{{ID: "1"}}}, &fakeTrader{}, WithMetrics(m))

	do(t, s, http.MethodGet, "/api/markets", "")
	w, _ := do(t, s, http.MethodGet, "/metrics", "")

	want := `marketboard_http_requests_total{method="GET",route="/api/markets",status="200"} 1`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("metrics missing %s", want)
	}
}
