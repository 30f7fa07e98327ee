package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/bot"
	"github.com/web3guy0/marketboard/core"
	"github.com/web3guy0/marketboard/exec"
	"github.com/web3guy0/marketboard/internal/aggregate"
	"github.com/web3guy0/marketboard/internal/metrics"
)

// ═══════════════════════════════════════════════════════════════════════════════
// HTTP API
// ═══════════════════════════════════════════════════════════════════════════════
//
// Routes:
//   GET  /api/markets            Polymarket collection
//   GET  /api/markets/view       filtered, windowed Polymarket view
//   GET  /api/markets/overview   top markets per category
//   GET  /api/markets/:id        one market with outcome rows
//   GET  /api/kalshi/markets     Kalshi page
//   GET  /api/kalshi/events      Kalshi markets grouped by event
//   POST /api/place-order        CLOB order proxy
//   GET  /healthz, /metrics
//
// ═══════════════════════════════════════════════════════════════════════════════

// MarketService answers the market routes
type MarketService interface {
	PolymarketMarkets(ctx context.Context) (aggregate.Result, error)
	PolymarketView(ctx context.Context, q core.ViewQuery) (core.View, error)
	Overview(ctx context.Context, n int) ([]core.CategorySection, error)
	PolymarketMarket(ctx context.Context, id string) (core.MarketDetail, bool, error)
	KalshiMarkets(ctx context.Context, q core.KalshiQuery) (core.KalshiResult, error)
	KalshiEvents(ctx context.Context, q core.EventQuery) ([]core.EventView, error)
}

// Trader places orders
type Trader interface {
	PlaceOrder(ctx context.Context, req exec.OrderRequest) (*exec.OrderResponse, error)
	Ready() bool
}

// Server is the HTTP front end
type Server struct {
	markets  MarketService
	trader   Trader
	notifier bot.Notifier
	metrics  *metrics.Metrics
	router   *gin.Engine
}

// Option configures a Server
type Option func(*Server)

// WithNotifier sends order alerts
func WithNotifier(n bot.Notifier) Option {
	return func(s *Server) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMetrics records request metrics and serves /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the server and its routes
func New(markets MarketService, trader Trader, opts ...Option) *Server {
	s := &Server{
		markets:  markets,
		trader:   trader,
		notifier: bot.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), accessLog(), recovery(), s.observe())

	// No proxy in front by default
	_ = router.SetTrustedProxies(nil)

	api := router.Group("/api")
	{
		api.GET("/markets", s.handleMarkets)
		api.GET("/markets/view", s.handleMarketView)
		api.GET("/markets/overview", s.handleOverview)
		api.GET("/markets/:id", s.handleMarket)
		api.GET("/kalshi/markets", s.handleKalshiMarkets)
		api.GET("/kalshi/events", s.handleKalshiEvents)
		api.POST("/place-order", s.handlePlaceOrder)
	}

	router.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"trading": s.trader.Ready(),
	})
}

// Run serves on addr until ctx is done, then drains in-flight requests
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("🌐 HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("🛑 Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
