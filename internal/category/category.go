// Package category assigns a best-fit category label to a market.
//
// Resolution order is fixed:
//  1. an upstream category, normalized against the vocabulary
//  2. the Politics and Economy override lists
//  3. keyword hit counts per vocabulary category
//  4. sports team names
//  5. Uncategorized
package category

import (
	"strings"

	"github.com/web3guy0/marketboard/types"
)

type keywordSet struct {
	category string
	keywords []string
}

// vocabulary is ordered; ties in the keyword matcher go to the earlier entry
var vocabulary = []keywordSet{
	{types.CategorySports, []string{
		"sports", "football", "soccer", "nfl", "nba", "mlb", "hockey", "tennis",
		"golf", "championship", "league", "tournament", "cup", "premier", "uefa",
		"world cup", "champion", "winner",
	}},
	{types.CategoryPolitics, []string{
		"politics", "election", "president", "vote", "political", "democrat",
		"republican", "congress", "senate", "house", "government", "trump",
		"biden", "presidential",
	}},
	{types.CategoryCrypto, []string{
		"crypto", "bitcoin", "ethereum", "blockchain", "btc", "eth", "token",
		"coin", "defi", "nft", "web3",
	}},
	// New is date-derived and never keyword matched
	{types.CategoryNew, nil},
	{types.CategoryEconomy, []string{
		"economy", "economic", "finance", "financial", "stock", "market", "gdp",
		"inflation", "recession", "fed", "interest rate",
	}},
}

var politicsOverride = []string{
	"trump", "biden", "war", "ukraine", "russia", "recession", "openai", "u.s.",
	"united states", "election", "government", "president", "congress", "senate",
	"house", "supreme court", "federal", "democracy", "democratic", "republican",
}

var economyOverride = []string{
	"recession", "economy", "economic", "inflation", "fed", "interest rate", "gdp",
	"stock market", "financial", "finance",
}

var sportsTeams = []string{
	"arsenal", "manchester", "liverpool", "chelsea", "tottenham", "lakers",
	"celtics", "warriors", "bulls", "heat", "knicks", "yankees", "dodgers",
	"red sox", "cubs", "giants", "cowboys", "patriots", "eagles", "packers",
	"steelers",
}

// Input is the text a category is derived from
type Input struct {
	// Raw is the upstream category, if the provider sent one
	Raw string
	// Text is the title or question the heuristics run over
	Text string
}

// Determine resolves the category for in. It never returns "".
func Determine(in Input) string {
	if raw := strings.TrimSpace(in.Raw); raw != "" {
		return Canonical(raw)
	}

	text := strings.ToLower(in.Text)
	if text == "" {
		return types.CategoryUncategorized
	}

	if containsAny(text, politicsOverride) {
		return types.CategoryPolitics
	}
	if containsAny(text, economyOverride) {
		return types.CategoryEconomy
	}

	if best := bestKeywordMatch(text); best != "" {
		return best
	}

	if containsAny(text, sportsTeams) {
		return types.CategorySports
	}

	return types.CategoryUncategorized
}

// Canonical maps a raw label onto the vocabulary's casing, or returns it
// unchanged when it is not part of the vocabulary
func Canonical(raw string) string {
	for _, set := range vocabulary {
		if strings.EqualFold(raw, set.category) {
			return set.category
		}
	}
	return raw
}

func bestKeywordMatch(text string) string {
	best, bestCount := "", 0
	for _, set := range vocabulary {
		if set.category == types.CategoryNew {
			continue
		}
		count := 0
		for _, kw := range set.keywords {
			if strings.Contains(text, kw) {
				count++
			}
		}
		// strictly greater keeps the first category on ties
		if count > bestCount {
			best, bestCount = set.category, count
		}
	}
	return best
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
