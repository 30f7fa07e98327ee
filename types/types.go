package types

import "strings"

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Provider identifies the upstream platform a record came from
type Provider string

const (
	ProviderPolymarket Provider = "polymarket"
	ProviderKalshi     Provider = "kalshi"
)

// NotAvailable is the sentinel for a missing end date
const NotAvailable = "N/A"

// UntitledMarket is the display title of a record with neither title nor question
const UntitledMarket = "Untitled Market"

// Category vocabulary. Order matters: it is the tie-break order of the
// keyword matcher.
const (
	CategorySports        = "Sports"
	CategoryPolitics      = "Politics"
	CategoryCrypto        = "Crypto"
	CategoryNew           = "New"
	CategoryEconomy       = "Economy"
	CategoryUncategorized = "Uncategorized"
)

// Categories returns the fixed vocabulary in insertion order
func Categories() []string {
	return []string{CategorySports, CategoryPolitics, CategoryCrypto, CategoryNew, CategoryEconomy}
}

// SortKey selects the descending sort field of a view
type SortKey string

const (
	SortVolume    SortKey = "volume"
	SortLiquidity SortKey = "liquidity"
)

// ParseSortKey maps free text to a SortKey, defaulting to volume
func ParseSortKey(s string) SortKey {
	if strings.EqualFold(strings.TrimSpace(s), string(SortLiquidity)) {
		return SortLiquidity
	}
	return SortVolume
}

// Market is the unified display record.
//
// OutcomePrices are probabilities in [0,1] for every provider and are
// index-aligned with Outcomes.
type Market struct {
	ID             string      `json:"id"`
	Provider       Provider    `json:"provider"`
	Title          string      `json:"title"`
	Question       string      `json:"question"`
	Description    string      `json:"description,omitempty"`
	Volume         float64     `json:"volume"`
	Liquidity      float64     `json:"liquidity"`
	EndDate        string      `json:"endDate"`
	Active         bool        `json:"active"`
	Closed         bool        `json:"closed"`
	Category       string      `json:"category"`
	Outcomes       []string    `json:"outcomes,omitempty"`
	OutcomePrices  []float64   `json:"outcomePrices,omitempty"`
	Image          string      `json:"image,omitempty"`
	Icon           string      `json:"icon,omitempty"`
	Slug           string      `json:"slug,omitempty"`
	ConditionID    string      `json:"conditionId,omitempty"`
	StartDate      string      `json:"startDate,omitempty"`
	CreatedAt      string      `json:"createdAt,omitempty"`
	UpdatedAt      string      `json:"updatedAt,omitempty"`
	IsNew          bool        `json:"isNew"`
	Featured       bool        `json:"featured,omitempty"`
	Restricted     bool        `json:"restricted,omitempty"`
	Volume24h      float64     `json:"volume24hr,omitempty"`
	Spread         float64     `json:"spread,omitempty"`
	BestBid        float64     `json:"bestBid,omitempty"`
	BestAsk        float64     `json:"bestAsk,omitempty"`
	LastTradePrice float64     `json:"lastTradePrice,omitempty"`
	SubMarkets     []SubMarket `json:"markets,omitempty"`
}

// SubMarket is one option of a multi-outcome event
type SubMarket struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Question      string    `json:"question,omitempty"`
	ConditionID   string    `json:"conditionId,omitempty"`
	Outcomes      []string  `json:"outcomes,omitempty"`
	OutcomePrices []float64 `json:"outcomePrices,omitempty"`
	TokenIDs      []string  `json:"clobTokenIds,omitempty"`
	// YesPrice is OutcomePrices[0]; HasYesPrice reports whether it exists
	YesPrice    float64 `json:"yesPrice"`
	HasYesPrice bool    `json:"-"`
}

// KalshiMarket is a Market enriched with the exchange's event fields.
// Bid/ask/last prices are probabilities, converted from cents on ingest.
type KalshiMarket struct {
	Market
	Ticker         string  `json:"ticker"`
	EventTicker    string  `json:"event_ticker"`
	EventTitle     string  `json:"event_title,omitempty"`
	OptionName     string  `json:"option_name,omitempty"`
	Subtitle       string  `json:"subtitle,omitempty"`
	Status         string  `json:"status"`
	YesBid         float64 `json:"yes_bid"`
	YesAsk         float64 `json:"yes_ask"`
	NoBid          float64 `json:"no_bid"`
	NoAsk          float64 `json:"no_ask"`
	LastPrice      float64 `json:"last_price"`
	OpenInterest   float64 `json:"open_interest"`
	OpenTime       string  `json:"open_time,omitempty"`
	CloseTime      string  `json:"close_time,omitempty"`
	ExpirationTime string  `json:"expiration_time,omitempty"`
	RulesPrimary   string  `json:"rules_primary,omitempty"`
	RulesSecondary string  `json:"rules_secondary,omitempty"`
}

// EventGroup aggregates the Kalshi markets of one event
type EventGroup struct {
	EventTicker    string         `json:"eventTicker"`
	EventTitle     string         `json:"eventTitle"`
	Category       string         `json:"category"`
	Markets        []KalshiMarket `json:"markets"`
	TotalVolume    float64        `json:"totalVolume"`
	TotalLiquidity float64        `json:"totalLiquidity"`
}
