package query

import (
	"sort"

	"github.com/web3guy0/marketboard/types"
)

// OutcomeRow is one line of an outcome list
type OutcomeRow struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
	// TokenID is the CLOB token of the yes side, when known
	TokenID string `json:"tokenId,omitempty"`
}

// OutcomeRows lists the display rows of m. Multi-outcome events list their
// nested markets by yes price, highest first; plain markets zip outcomes with
// prices and drop labels that have none.
func OutcomeRows(m types.Market) []OutcomeRow {
	if len(m.SubMarkets) > 0 {
		rows := make([]OutcomeRow, 0, len(m.SubMarkets))
		for _, sm := range m.SubMarkets {
			if !sm.HasYesPrice {
				continue
			}
			row := OutcomeRow{Label: sm.Title, Price: sm.YesPrice}
			if len(sm.TokenIDs) > 0 {
				row.TokenID = sm.TokenIDs[0]
			}
			rows = append(rows, row)
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Price > rows[j].Price
		})
		return rows
	}

	rows := make([]OutcomeRow, 0, len(m.Outcomes))
	for i, label := range m.Outcomes {
		if i >= len(m.OutcomePrices) {
			break
		}
		rows = append(rows, OutcomeRow{Label: label, Price: m.OutcomePrices[i]})
	}
	return rows
}
