package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/core"
	"github.com/web3guy0/marketboard/internal/query"
	"github.com/web3guy0/marketboard/types"
)

const (
	defaultKalshiLimit = 100
	defaultOverviewN   = 6
	maxOverviewN       = 50
)

// ═══════════════════════════════════════════════════════════════════════════════
// POLYMARKET
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleMarkets(c *gin.Context) {
	res, err := s.markets.PolymarketMarkets(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Error in markets API route")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Error retrieving market data",
			"error":   err.Error(),
			"markets": []types.Market{},
		})
		return
	}

	if len(res.Markets) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "No markets available from Polymarket API",
			"markets": []types.Market{},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"markets":      res.Markets,
		"message":      fmt.Sprintf("All markets sorted by volume (%d total)", len(res.Markets)),
		"totalMarkets": len(res.Markets),
	})
}

func (s *Server) handleMarketView(c *gin.Context) {
	q := core.ViewQuery{
		Search:     c.Query("search"),
		Categories: categoriesParam(c),
		Sort:       types.ParseSortKey(c.Query("sort")),
		Loads:      loadsFor(intParam(c, "visible", query.DefaultStep)),
	}

	view, err := s.markets.PolymarketView(c.Request.Context(), q)
	if err != nil {
		upstreamFailure(c, err, gin.H{"markets": []types.Market{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"markets":      view.Markets,
		"totalMatches": view.TotalMatches,
		"visible":      view.Visible,
		"hasMore":      view.HasMore,
	})
}

func (s *Server) handleOverview(c *gin.Context) {
	n := intParam(c, "n", defaultOverviewN)
	if n <= 0 {
		n = defaultOverviewN
	}
	if n > maxOverviewN {
		n = maxOverviewN
	}

	sections, err := s.markets.Overview(c.Request.Context(), n)
	if err != nil {
		upstreamFailure(c, err, gin.H{"sections": []core.CategorySection{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "sections": sections})
}

func (s *Server) handleMarket(c *gin.Context) {
	detail, ok, err := s.markets.PolymarketMarket(c.Request.Context(), c.Param("id"))
	if err != nil {
		upstreamFailure(c, err, nil)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Market not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"market":   detail.Market,
		"outcomes": detail.Outcomes,
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// KALSHI
// ═══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleKalshiMarkets(c *gin.Context) {
	q := core.KalshiQuery{
		Limit:      intParam(c, "limit", defaultKalshiLimit),
		Offset:     intParam(c, "offset", 0),
		Sort:       types.ParseSortKey(c.Query("sort")),
		Categories: categoriesParam(c),
	}

	res, err := s.markets.KalshiMarkets(c.Request.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching Kalshi markets")
		c.JSON(http.StatusBadGateway, gin.H{
			"success":      false,
			"markets":      []types.KalshiMarket{},
			"message":      err.Error(),
			"totalMarkets": 0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"markets":      res.Markets,
		"categories":   res.Categories,
		"totalMarkets": res.Total,
		"message":      "Markets retrieved successfully",
	})
}

func (s *Server) handleKalshiEvents(c *gin.Context) {
	q := core.EventQuery{
		Search:     c.Query("search"),
		Categories: categoriesParam(c),
		Sort:       types.ParseSortKey(c.Query("sort")),
	}

	events, err := s.markets.KalshiEvents(c.Request.Context(), q)
	if err != nil {
		upstreamFailure(c, err, gin.H{"events": []core.EventView{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"events":      events,
		"totalEvents": len(events),
	})
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ═══════════════════════════════════════════════════════════════════════════════

func upstreamFailure(c *gin.Context, err error, extra gin.H) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Upstream fetch failed")
	body := gin.H{"success": false, "message": "Failed to fetch markets", "error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusBadGateway, body)
}

// categoriesParam accepts ?categories=a&categories=b, the categories[] form
// and comma separated values
func categoriesParam(c *gin.Context) []string {
	var out []string
	for _, key := range []string{"categories", "categories[]"} {
		for _, v := range c.QueryArray(key) {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

func intParam(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// loadsFor converts a requested visible count into "load more" presses
func loadsFor(visible int) int {
	if visible <= query.DefaultStep {
		return 0
	}
	return (visible - 1) / query.DefaultStep
}
