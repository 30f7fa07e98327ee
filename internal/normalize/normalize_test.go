package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/web3guy0/marketboard/types"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func decodeGamma(t *testing.T, raw string) GammaRecord {
	t.Helper()
	var r GammaRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return r
}

func TestPolymarketAmounts(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantVolume    float64
		wantLiquidity float64
	}{
		{"missing", `{"id":"1"}`, 0, 0},
		{"numbers", `{"id":"1","volume":1500.5,"liquidity":20}`, 1500.5, 20},
		{"numeric strings", `{"id":"1","volume":"42.25","liquidity":"7"}`, 42.25, 7},
		{"non numeric string", `{"id":"1","volume":"lots"}`, 0, 0},
		{"fallback fields", `{"id":"1","volumeNum":9,"liquidityNum":3}`, 9, 3},
		{"null", `{"id":"1","volume":null}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Polymarket(decodeGamma(t, tt.raw), fixedNow)
			if m.Volume != tt.wantVolume {
				t.Errorf("Volume = %v, want %v", m.Volume, tt.wantVolume)
			}
			if m.Liquidity != tt.wantLiquidity {
				t.Errorf("Liquidity = %v, want %v", m.Liquidity, tt.wantLiquidity)
			}
		})
	}
}

func TestPolymarketOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantOutcomes int
		wantPrices   []float64
	}{
		{"encoded strings", `{"id":"1","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[\"0.62\",\"0.38\"]"}`, 2, []float64{0.62, 0.38}},
		{"plain arrays", `{"id":"1","outcomes":["Yes","No"],"outcomePrices":[0.1,0.9]}`, 2, []float64{0.1, 0.9}},
		{"malformed prices", `{"id":"1","outcomes":"[\"Yes\",\"No\"]","outcomePrices":"[0.5,"}`, 2, nil},
		{"malformed outcomes", `{"id":"1","outcomes":"not json","outcomePrices":"[0.5,0.5]"}`, 0, nil},
		{"length mismatch", `{"id":"1","outcomes":["Yes","No"],"outcomePrices":[0.5]}`, 2, nil},
		{"absent", `{"id":"1"}`, 0, nil},
		{"bad element", `{"id":"1","outcomes":["Yes","No"],"outcomePrices":["abc","0.5"]}`, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Polymarket(decodeGamma(t, tt.raw), fixedNow)
			if len(m.Outcomes) != tt.wantOutcomes {
				t.Fatalf("len(Outcomes) = %d, want %d", len(m.Outcomes), tt.wantOutcomes)
			}
			if len(m.OutcomePrices) != len(tt.wantPrices) {
				t.Fatalf("OutcomePrices = %v, want %v", m.OutcomePrices, tt.wantPrices)
			}
			for i := range tt.wantPrices {
				if m.OutcomePrices[i] != tt.wantPrices[i] {
					t.Errorf("OutcomePrices[%d] = %v, want %v", i, m.OutcomePrices[i], tt.wantPrices[i])
				}
			}
		})
	}
}

func TestPolymarketDefaults(t *testing.T) {
	m := Polymarket(decodeGamma(t, `{"id":"9","question":"Will BTC close green?"}`), fixedNow)

	if m.Title != "Will BTC close green?" {
		t.Errorf("Title = %q, want question fallback", m.Title)
	}
	if m.EndDate != types.NotAvailable {
		t.Errorf("EndDate = %q, want %q", m.EndDate, types.NotAvailable)
	}
	if m.Category == "" {
		t.Error("Category must never be empty")
	}
	if m.Provider != types.ProviderPolymarket {
		t.Errorf("Provider = %q", m.Provider)
	}

	untitledMarket := Polymarket(decodeGamma(t, `{"id":"10"}`), fixedNow)
	if untitledMarket.Title != types.UntitledMarket {
		t.Errorf("Title = %q, want %q", untitledMarket.Title, types.UntitledMarket)
	}
}

func TestPolymarketEndDatePrecedence(t *testing.T) {
	m := Polymarket(decodeGamma(t, `{"id":"1","end_date_iso":"2025-12-31","endDateIso":"2025-11-30"}`), fixedNow)
	if m.EndDate != "2025-11-30" {
		t.Errorf("EndDate = %q, want endDateIso", m.EndDate)
	}
}

func TestPolymarketIsNew(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"flagged new", `{"id":"1","new":true}`, true},
		{"created yesterday", `{"id":"1","createdAt":"2025-03-09T12:00:00Z"}`, true},
		{"created last month", `{"id":"1","createdAt":"2025-02-01T00:00:00Z"}`, false},
		{"start date fallback", `{"id":"1","startDate":"2025-03-05T00:00:00.000Z"}`, true},
		{"unparseable", `{"id":"1","createdAt":"yesterday"}`, false},
		{"missing", `{"id":"1"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Polymarket(decodeGamma(t, tt.raw), fixedNow).IsNew; got != tt.want {
				t.Errorf("IsNew = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolymarketSubMarkets(t *testing.T) {
	raw := `{
		"id":"ev1","title":"Who wins the league?",
		"markets":[
			{"id":"m1","question":"Will Arsenal win?","outcomePrices":"[\"0.3\",\"0.7\"]","outcomes":"[\"Yes\",\"No\"]"},
			{"id":"m2","groupItemTitle":"Liverpool","outcomePrices":"[\"0.5\",\"0.5\"]","outcomes":"[\"Yes\",\"No\"]"},
			{"id":"m3"}
		]
	}`
	m := Polymarket(decodeGamma(t, raw), fixedNow)

	if len(m.SubMarkets) != 3 {
		t.Fatalf("len(SubMarkets) = %d, want 3", len(m.SubMarkets))
	}
	if m.SubMarkets[0].Title != "Will Arsenal win" {
		t.Errorf("SubMarkets[0].Title = %q", m.SubMarkets[0].Title)
	}
	if m.SubMarkets[1].Title != "Liverpool" || m.SubMarkets[1].YesPrice != 0.5 {
		t.Errorf("SubMarkets[1] = %+v", m.SubMarkets[1])
	}
	if m.SubMarkets[2].HasYesPrice || m.SubMarkets[2].Title != "Option" {
		t.Errorf("SubMarkets[2] = %+v", m.SubMarkets[2])
	}
	if m.Category != types.CategorySports {
		t.Errorf("Category = %q, want Sports from title keywords", m.Category)
	}
}

func TestKalshiMarket(t *testing.T) {
	ev := KalshiEvent{
		EventTicker: "KXFED-25MAR",
		Title:       "Fed decision in March",
		SubTitle:    "March 2025",
		Category:    "economy",
	}
	raw := KalshiMarketEntry{
		Ticker:      "KXFED-25MAR-H0",
		Title:       "Will the Fed hold rates?",
		YesSubTitle: "Hold",
		Status:      "active",
		OpenTime:    "2025-03-08T00:00:00Z",
		CloseTime:   "2025-03-19T18:00:00Z",
		YesBid:      Number{Kind: NumberNumeric, Value: 85},
		NoBid:       Number{Kind: NumberNumeric, Value: 14},
		Volume:      Number{Kind: NumberNumeric, Value: 1000},
		Liquidity:   Number{Kind: NumberNumeric, Value: 500},
	}

	m := Kalshi(ev, raw, fixedNow)

	if m.ID != raw.Ticker || m.EventTicker != ev.EventTicker {
		t.Errorf("identity = %q/%q", m.ID, m.EventTicker)
	}
	if !m.Active || m.Closed {
		t.Errorf("Active/Closed = %v/%v", m.Active, m.Closed)
	}
	if m.Category != types.CategoryEconomy {
		t.Errorf("Category = %q, want canonical Economy", m.Category)
	}
	if m.OptionName != "Hold" {
		t.Errorf("OptionName = %q", m.OptionName)
	}
	if len(m.OutcomePrices) != len(m.Outcomes) {
		t.Fatalf("prices %v not aligned with outcomes %v", m.OutcomePrices, m.Outcomes)
	}
	if m.OutcomePrices[0] != 0.85 || m.OutcomePrices[1] != 0.14 {
		t.Errorf("OutcomePrices = %v, want probabilities", m.OutcomePrices)
	}
	if !m.IsNew {
		t.Error("IsNew = false for a market opened two days ago")
	}
	if m.EndDate != raw.CloseTime {
		t.Errorf("EndDate = %q", m.EndDate)
	}
}

func TestKalshiOptionName(t *testing.T) {
	ev := KalshiEvent{SubTitle: "Same"}
	tests := []struct {
		name string
		raw  KalshiMarketEntry
		want string
	}{
		{"yes sub title", KalshiMarketEntry{YesSubTitle: "Above 5%"}, "Above 5%"},
		{"same as event falls to subtitle", KalshiMarketEntry{YesSubTitle: "Same", Subtitle: ":: 4.75%"}, "4.75%"},
		{"custom strike", KalshiMarketEntry{CustomStrike: map[string]any{"Team": "Celtics"}}, "Celtics"},
		{"nothing", KalshiMarketEntry{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := optionName(ev, tt.raw); got != tt.want {
				t.Errorf("optionName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKalshiStatus(t *testing.T) {
	for status, want := range map[string][2]bool{
		"active":      {true, false},
		"initialized": {true, false},
		"settled":     {false, true},
		"canceled":    {false, true},
		"unopened":    {false, false},
	} {
		m := Kalshi(KalshiEvent{}, KalshiMarketEntry{Status: status}, fixedNow)
		if m.Active != want[0] || m.Closed != want[1] {
			t.Errorf("status %q: active=%v closed=%v, want %v", status, m.Active, m.Closed, want)
		}
		if m.Category != types.CategoryUncategorized {
			t.Errorf("status %q: Category = %q", status, m.Category)
		}
		if m.EndDate != types.NotAvailable {
			t.Errorf("status %q: EndDate = %q", status, m.EndDate)
		}
	}
}

func TestKalshiEventsFlatten(t *testing.T) {
	events := []KalshiEvent{
		{EventTicker: "A", Markets: []KalshiMarketEntry{{Ticker: "A-1"}, {Ticker: "A-2"}}},
		{EventTicker: "B"},
		{EventTicker: "C", Markets: []KalshiMarketEntry{{Ticker: "C-1"}}},
	}
	got := KalshiEvents(events, fixedNow)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[2].EventTicker != "C" {
		t.Errorf("EventTicker inherited = %q, want C", got[2].EventTicker)
	}
}
