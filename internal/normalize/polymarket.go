// Package normalize maps each provider's raw records onto types.Market.
//
// Normalizers are pure: they never fail and depend only on their input and
// the supplied clock reading.
package normalize

import (
	"strings"
	"time"

	"github.com/web3guy0/marketboard/internal/category"
	"github.com/web3guy0/marketboard/types"
)

// NewWindow is how recent a creation timestamp must be to flag a market new
const NewWindow = 7 * 24 * time.Hour

// GammaRecord is one element of a Polymarket Gamma listing. The events and
// markets endpoints share most fields, so one shape covers both.
type GammaRecord struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Question       string        `json:"question"`
	Description    string        `json:"description"`
	Volume         Number        `json:"volume"`
	VolumeNum      Number        `json:"volumeNum"`
	Liquidity      Number        `json:"liquidity"`
	LiquidityNum   Number        `json:"liquidityNum"`
	EndDate        string        `json:"endDate"`
	EndDateSnake   string        `json:"end_date"`
	EndDateISO     string        `json:"endDateIso"`
	EndDateISOSn   string        `json:"end_date_iso"`
	Active         bool          `json:"active"`
	Closed         bool          `json:"closed"`
	Category       string        `json:"category"`
	Image          string        `json:"image"`
	Icon           string        `json:"icon"`
	Slug           string        `json:"slug"`
	ConditionID    string        `json:"conditionId"`
	Outcomes       StringList    `json:"outcomes"`
	OutcomePrices  PriceList     `json:"outcomePrices"`
	ClobTokenIDs   StringList    `json:"clobTokenIds"`
	StartDate      string        `json:"startDate"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt"`
	New            bool          `json:"new"`
	Featured       bool          `json:"featured"`
	Restricted     bool          `json:"restricted"`
	Volume24h      Number        `json:"volume24hr"`
	Spread         Number        `json:"spread"`
	BestBid        Number        `json:"bestBid"`
	BestAsk        Number        `json:"bestAsk"`
	LastTradePrice Number        `json:"lastTradePrice"`
	GroupItemTitle string        `json:"groupItemTitle"`
	Markets        []GammaRecord `json:"markets"`
}

// DisplayTitle is the title used for dedup and display
func (r *GammaRecord) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Question
}

// Polymarket normalizes a Gamma record
func Polymarket(r GammaRecord, now time.Time) types.Market {
	outcomes, prices := alignOutcomes(r.Outcomes, r.OutcomePrices)

	title := r.DisplayTitle()
	if title == "" {
		title = types.UntitledMarket
	}

	m := types.Market{
		ID:             r.ID,
		Provider:       types.ProviderPolymarket,
		Title:          title,
		Question:       r.Question,
		Description:    r.Description,
		Volume:         firstAmount(r.Volume, r.VolumeNum),
		Liquidity:      firstAmount(r.Liquidity, r.LiquidityNum),
		EndDate:        firstNonEmpty(r.EndDate, r.EndDateSnake, r.EndDateISO, r.EndDateISOSn),
		Active:         r.Active,
		Closed:         r.Closed,
		Category:       category.Determine(category.Input{Raw: r.Category, Text: gammaCategoryText(r)}),
		Outcomes:       outcomes,
		OutcomePrices:  prices,
		Image:          r.Image,
		Icon:           r.Icon,
		Slug:           r.Slug,
		ConditionID:    r.ConditionID,
		StartDate:      r.StartDate,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		IsNew:          r.New || isRecent(firstNonEmpty(r.CreatedAt, r.StartDate), now),
		Featured:       r.Featured,
		Restricted:     r.Restricted,
		Volume24h:      optional(r.Volume24h),
		Spread:         optional(r.Spread),
		BestBid:        optional(r.BestBid),
		BestAsk:        optional(r.BestAsk),
		LastTradePrice: optional(r.LastTradePrice),
	}

	if len(r.Markets) > 0 {
		m.SubMarkets = make([]types.SubMarket, 0, len(r.Markets))
		for _, nested := range r.Markets {
			m.SubMarkets = append(m.SubMarkets, subMarket(nested))
		}
	}

	return m
}

func subMarket(r GammaRecord) types.SubMarket {
	outcomes, prices := alignOutcomes(r.Outcomes, r.OutcomePrices)

	title := r.GroupItemTitle
	if title == "" && r.Question != "" {
		title = strings.Replace(r.Question, "?", "", 1)
	}
	if title == "" {
		title = "Option"
	}

	sm := types.SubMarket{
		ID:            r.ID,
		Title:         title,
		Question:      r.Question,
		ConditionID:   r.ConditionID,
		Outcomes:      outcomes,
		OutcomePrices: prices,
		TokenIDs:      r.ClobTokenIDs.Values,
	}
	if len(prices) > 0 {
		sm.YesPrice, sm.HasYesPrice = prices[0], true
	}
	return sm
}

func gammaCategoryText(r GammaRecord) string {
	if r.Question != "" {
		return r.Question
	}
	if r.Title != "" {
		return r.Title
	}
	if len(r.Markets) > 0 {
		return r.Markets[0].Question
	}
	return ""
}

// alignOutcomes enforces the parallel-array invariant: prices are kept only
// when they line up one-to-one with the outcome labels.
func alignOutcomes(outcomes StringList, prices PriceList) ([]string, []float64) {
	var labels []string
	switch outcomes.Kind {
	case ListArray, ListEncoded:
		labels = outcomes.Values
	}

	var values []float64
	switch prices.Kind {
	case ListArray, ListEncoded:
		values = prices.Values
	}

	if len(labels) == 0 {
		return nil, nil
	}
	if len(values) != len(labels) {
		return labels, nil
	}
	return labels, values
}

func firstAmount(candidates ...Number) float64 {
	for _, c := range candidates {
		if v, ok := c.Float(); ok {
			if v < 0 {
				return 0
			}
			return v
		}
	}
	return 0
}

func optional(n Number) float64 {
	v, _ := n.Float()
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return types.NotAvailable
}

// isRecent reports whether ts is within NewWindow of now
func isRecent(ts string, now time.Time) bool {
	if ts == "" || ts == types.NotAvailable {
		return false
	}
	t, ok := parseTime(ts)
	if !ok {
		return false
	}
	return !t.Before(now.Add(-NewWindow))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
