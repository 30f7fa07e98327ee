package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/marketboard/bot"
	"github.com/web3guy0/marketboard/core"
	"github.com/web3guy0/marketboard/exec"
	"github.com/web3guy0/marketboard/feeds"
	"github.com/web3guy0/marketboard/internal/config"
	"github.com/web3guy0/marketboard/internal/logging"
	"github.com/web3guy0/marketboard/internal/metrics"
	"github.com/web3guy0/marketboard/internal/server"
)

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// .env.local wins over .env; neither overrides the real environment
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err == nil {
			log.Debug().Str("file", file).Msg("Loaded env file")
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logFile, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		MaxAge: cfg.LogMaxAge,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logFile.Close()

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("              MARKETBOARD - Prediction market aggregator")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Metrics
	m := metrics.New()

	// 2. Upstream feeds
	feedOpts := []feeds.Option{
		feeds.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		feeds.WithMetrics(m),
	}
	gamma := feeds.NewGammaClient(append(feedOpts, feeds.WithBaseURL(cfg.GammaURL))...)
	kalshi := feeds.NewKalshiClient(append(feedOpts, feeds.WithBaseURL(cfg.KalshiURL))...)
	log.Info().Str("gamma", cfg.GammaURL).Str("kalshi", cfg.KalshiURL).Msg("✅ Market feeds initialized")

	// 3. Market service
	svc := core.NewService(gamma, kalshi, core.Config{
		GammaPageSize:    cfg.PageSize,
		GammaMaxPages:    cfg.MaxPages,
		KalshiFetchLimit: cfg.KalshiLimit,
	}, core.WithServiceMetrics(m))
	log.Info().Msg("✅ Market service initialized")

	// 4. Execution client
	trader := exec.NewClient(cfg.Credentials,
		exec.WithBaseURL(cfg.CLOBURL),
		exec.WithFunder(cfg.FunderAddress, cfg.SignatureType),
	)
	log.Info().Bool("configured", cfg.Credentials.Configured()).Msg("✅ Execution layer initialized")

	// 5. Telegram notifications (optional)
	var notifier bot.Notifier = bot.Nop{}
	if cfg.TelegramEnabled() {
		tg, err := bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID, trader.Ready)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram disabled")
		} else {
			tg.Start()
			defer tg.Stop()
			notifier = tg
		}
	}

	// 6. HTTP server
	gin.SetMode(gin.ReleaseMode)
	srv := server.New(svc, trader, server.WithNotifier(notifier), server.WithMetrics(m))

	// ═══════════════════════════════════════════════════════════════════════════════
	// RUN UNTIL SIGNALLED
	// ═══════════════════════════════════════════════════════════════════════════════

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("🚀 All systems running...")
	if err := srv.Run(ctx, cfg.ListenAddr, cfg.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		logFile.Close()
		os.Exit(1)
	}

	log.Info().Msg("👋 Goodbye!")
}
