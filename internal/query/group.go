package query

import (
	"sort"

	"github.com/web3guy0/marketboard/types"
)

const unknownEvent = "Unknown Event"

// GroupByEvent partitions markets by event ticker in first-seen order.
// Markets without an event ticker are left out.
func GroupByEvent(markets []types.KalshiMarket) []types.EventGroup {
	index := make(map[string]int)
	var groups []types.EventGroup

	for _, m := range markets {
		if m.EventTicker == "" {
			continue
		}
		i, ok := index[m.EventTicker]
		if !ok {
			title := m.EventTitle
			if title == "" {
				title = unknownEvent
			}
			cat := m.Category
			if cat == "" {
				cat = types.CategoryUncategorized
			}
			groups = append(groups, types.EventGroup{
				EventTicker: m.EventTicker,
				EventTitle:  title,
				Category:    cat,
			})
			i = len(groups) - 1
			index[m.EventTicker] = i
		}
		g := &groups[i]
		g.Markets = append(g.Markets, m)
		g.TotalVolume += m.Volume
		g.TotalLiquidity += m.Liquidity
	}
	return groups
}

// SortGroups returns groups sorted descending by their total for key
func SortGroups(groups []types.EventGroup, key types.SortKey) []types.EventGroup {
	out := append([]types.EventGroup(nil), groups...)
	sort.SliceStable(out, func(i, j int) bool {
		if key == types.SortLiquidity {
			return out[i].TotalLiquidity > out[j].TotalLiquidity
		}
		return out[i].TotalVolume > out[j].TotalVolume
	})
	return out
}

// MostLikely returns the market with the highest yes bid. Ties keep the
// earlier market; a market without a bid never wins over one with a bid.
func MostLikely(markets []types.KalshiMarket) (types.KalshiMarket, bool) {
	best := -1
	for i, m := range markets {
		if m.YesBid <= 0 {
			continue
		}
		if best < 0 || m.YesBid > markets[best].YesBid {
			best = i
		}
	}
	if best < 0 {
		if len(markets) == 0 {
			return types.KalshiMarket{}, false
		}
		return markets[0], true
	}
	return markets[best], true
}
