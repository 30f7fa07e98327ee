package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/web3guy0/marketboard/internal/category"
	"github.com/web3guy0/marketboard/types"
)

// centsPerUnit converts Kalshi's 0-100 cent prices into probabilities
const centsPerUnit = 100.0

// KalshiEvent is one event of the Kalshi events listing with nested markets
type KalshiEvent struct {
	EventTicker  string              `json:"event_ticker"`
	SeriesTicker string              `json:"series_ticker"`
	Title        string              `json:"title"`
	SubTitle     string              `json:"sub_title"`
	Category     string              `json:"category"`
	Markets      []KalshiMarketEntry `json:"markets"`
}

// KalshiMarketEntry is a raw Kalshi market
type KalshiMarketEntry struct {
	Ticker         string            `json:"ticker"`
	EventTicker    string            `json:"event_ticker"`
	MarketType     string            `json:"market_type"`
	Title          string            `json:"title"`
	Subtitle       string            `json:"subtitle"`
	YesSubTitle    string            `json:"yes_sub_title"`
	NoSubTitle     string            `json:"no_sub_title"`
	OpenTime       string            `json:"open_time"`
	CloseTime      string            `json:"close_time"`
	ExpirationTime string            `json:"expiration_time"`
	Status         string            `json:"status"`
	YesBid         Number            `json:"yes_bid"`
	YesAsk         Number            `json:"yes_ask"`
	NoBid          Number            `json:"no_bid"`
	NoAsk          Number            `json:"no_ask"`
	LastPrice      Number            `json:"last_price"`
	Volume         Number            `json:"volume"`
	Volume24h      Number            `json:"volume_24h"`
	Liquidity      Number            `json:"liquidity"`
	OpenInterest   Number            `json:"open_interest"`
	Category       string            `json:"category"`
	RulesPrimary   string            `json:"rules_primary"`
	RulesSecondary string            `json:"rules_secondary"`
	CustomStrike   map[string]any    `json:"custom_strike"`
}

var (
	kalshiActive = map[string]bool{"active": true, "initialized": true, "open": true}
	kalshiClosed = map[string]bool{"settled": true, "canceled": true, "closed": true, "finalized": true}
)

// KalshiEvents flattens events into normalized markets, preserving order
func KalshiEvents(events []KalshiEvent, now time.Time) []types.KalshiMarket {
	var out []types.KalshiMarket
	for _, ev := range events {
		for _, raw := range ev.Markets {
			out = append(out, Kalshi(ev, raw, now))
		}
	}
	return out
}

// Kalshi normalizes one market of ev
func Kalshi(ev KalshiEvent, raw KalshiMarketEntry, now time.Time) types.KalshiMarket {
	yesBid := cents(raw.YesBid)
	noBid := cents(raw.NoBid)

	eventTicker := raw.EventTicker
	if eventTicker == "" {
		eventTicker = ev.EventTicker
	}

	rawCategory := ev.Category
	if rawCategory == "" {
		rawCategory = raw.Category
	}

	endDate := raw.CloseTime
	if endDate == "" {
		endDate = types.NotAvailable
	}

	status := strings.ToLower(raw.Status)

	return types.KalshiMarket{
		Market: types.Market{
			ID:            raw.Ticker,
			Provider:      types.ProviderKalshi,
			Title:         raw.Title,
			Question:      raw.Title,
			Description:   raw.RulesPrimary,
			Volume:        firstAmount(raw.Volume),
			Liquidity:     firstAmount(raw.Liquidity),
			EndDate:       endDate,
			Active:        kalshiActive[status],
			Closed:        kalshiClosed[status],
			Category:      category.Determine(category.Input{Raw: rawCategory, Text: firstText(raw.Title, ev.Title)}),
			Outcomes:      []string{"Yes", "No"},
			OutcomePrices: []float64{yesBid, noBid},
			IsNew:         isRecent(raw.OpenTime, now),
			Volume24h:     optional(raw.Volume24h),
			BestBid:       yesBid,
			BestAsk:       cents(raw.YesAsk),
		},
		Ticker:         raw.Ticker,
		EventTicker:    eventTicker,
		EventTitle:     ev.Title,
		OptionName:     optionName(ev, raw),
		Subtitle:       raw.Subtitle,
		Status:         raw.Status,
		YesBid:         yesBid,
		YesAsk:         cents(raw.YesAsk),
		NoBid:          noBid,
		NoAsk:          cents(raw.NoAsk),
		LastPrice:      cents(raw.LastPrice),
		OpenInterest:   optional(raw.OpenInterest),
		OpenTime:       raw.OpenTime,
		CloseTime:      raw.CloseTime,
		ExpirationTime: raw.ExpirationTime,
		RulesPrimary:   raw.RulesPrimary,
		RulesSecondary: raw.RulesSecondary,
	}
}

func optionName(ev KalshiEvent, raw KalshiMarketEntry) string {
	if raw.YesSubTitle != "" && raw.YesSubTitle != ev.SubTitle {
		return raw.YesSubTitle
	}
	if raw.Subtitle != "" {
		return strings.TrimSpace(strings.Replace(raw.Subtitle, "::", "", 1))
	}
	if len(raw.CustomStrike) > 0 {
		// map order is random; take the smallest key for a stable answer
		keys := make([]string, 0, len(raw.CustomStrike))
		for k := range raw.CustomStrike {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprint(raw.CustomStrike[keys[0]])
	}
	return ""
}

func cents(n Number) float64 {
	v, ok := n.Float()
	if !ok || v <= 0 {
		return 0
	}
	return v / centsPerUnit
}

func firstText(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
