// Package query implements the in-memory views over an already fetched
// market collection: search, category filter, sort, incremental paging,
// event grouping and outcome display rows.
//
// Every function here is pure. Inputs are never mutated; results are fresh
// slices.
package query

import (
	"sort"
	"strings"

	"github.com/web3guy0/marketboard/pkg/hashset"
	"github.com/web3guy0/marketboard/types"
)

// Filter is a search + category + sort selection
type Filter struct {
	// Search is matched case-insensitively as a substring
	Search string
	// Categories is an OR-set; empty means all
	Categories []string
	Sort       types.SortKey
}

func (f Filter) search() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}

func (f Filter) categorySet() hashset.Set[string] {
	if len(f.Categories) == 0 {
		return nil
	}
	return hashset.SetFromSlice(f.Categories)
}

// Apply returns the markets matching f, sorted descending by f.Sort
func (f Filter) Apply(markets []types.Market) []types.Market {
	needle := f.search()
	cats := f.categorySet()

	out := make([]types.Market, 0, len(markets))
	for _, m := range markets {
		if needle != "" && !containsFold(needle, m.Title, m.Question, m.Category) {
			continue
		}
		if cats != nil && !cats.Has(m.Category) {
			continue
		}
		out = append(out, m)
	}

	key := f.Sort
	sort.SliceStable(out, func(i, j int) bool {
		return sortValue(out[i], key) > sortValue(out[j], key)
	})
	return out
}

// ApplyKalshi is Apply over the exchange view, where search covers the
// market title and its event title
func (f Filter) ApplyKalshi(markets []types.KalshiMarket) []types.KalshiMarket {
	needle := f.search()
	cats := f.categorySet()

	out := make([]types.KalshiMarket, 0, len(markets))
	for _, m := range markets {
		if needle != "" && !containsFold(needle, m.Title, m.EventTitle) {
			continue
		}
		if cats != nil && !cats.Has(m.Category) {
			continue
		}
		out = append(out, m)
	}

	key := f.Sort
	sort.SliceStable(out, func(i, j int) bool {
		return sortValue(out[i].Market, key) > sortValue(out[j].Market, key)
	})
	return out
}

// FilterCategories keeps markets whose category matches one of cats,
// ignoring case. An empty cats keeps everything.
func FilterCategories(markets []types.KalshiMarket, cats []string) []types.KalshiMarket {
	if len(cats) == 0 {
		return append([]types.KalshiMarket(nil), markets...)
	}
	want := hashset.NewSet[string]()
	for _, c := range cats {
		want.Set(strings.ToLower(c))
	}

	out := make([]types.KalshiMarket, 0, len(markets))
	for _, m := range markets {
		if want.Has(strings.ToLower(m.Category)) {
			out = append(out, m)
		}
	}
	return out
}

// UniqueCategories lists the distinct categories in first-seen order
func UniqueCategories(markets []types.KalshiMarket) []string {
	seen := hashset.NewSet[string]()
	out := []string{}
	for _, m := range markets {
		if seen.Add(m.Category) {
			out = append(out, m.Category)
		}
	}
	return out
}

// SortKalshi returns a copy of markets sorted descending by key
func SortKalshi(markets []types.KalshiMarket, key types.SortKey) []types.KalshiMarket {
	out := append([]types.KalshiMarket(nil), markets...)
	sort.SliceStable(out, func(i, j int) bool {
		return sortValue(out[i].Market, key) > sortValue(out[j].Market, key)
	})
	return out
}

// TopByCategory returns the first n markets of a category in input order
func TopByCategory(markets []types.Market, category string, n int) []types.Market {
	out := []types.Market{}
	for _, m := range markets {
		if len(out) >= n {
			break
		}
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

func sortValue(m types.Market, key types.SortKey) float64 {
	if key == types.SortLiquidity {
		return m.Liquidity
	}
	return m.Volume
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
