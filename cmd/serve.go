package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"snippepay/internal/bootstrap"
	"snippepay/internal/config"
	cronpkg "snippepay/internal/cron"
	gatelog "snippepay/internal/logger"
	"snippepay/internal/middleware"
	"snippepay/internal/notify"
	"snippepay/internal/payment"
	"snippepay/internal/repository"
	"snippepay/internal/router"
	"snippepay/internal/webhook"
)

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout, webhook and admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides APP_PORT)")
	return cmd
}

func runServer(port int) error {
	// --- Logger ---
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	// --- Gateway log switch ---
	toggle := gatelog.NewToggle(cfg.Snippe.Logging)
	gatewayLog := gatelog.Gated(logger.Named("snippe"), toggle)

	// --- Snippe client and gateway ---
	client := payment.NewClient(payment.ClientConfig{
		BaseURL: cfg.Snippe.BaseURL,
		APIKey:  cfg.Snippe.APIKey(),
		Timeout: cfg.Snippe.Timeout,
	}, gatewayLog)

	urls := payment.BuildOptions{
		StoreURL:    cfg.Store.URL,
		CountryCode: cfg.Store.CountryCode,
		OrderPrefix: cfg.Snippe.OrderPrefix,
	}
	orders := repository.NewOrderStore(db)
	gateway := payment.NewGateway(
		client,
		orders,
		repository.NewStockStore(db),
		repository.NewCartStore(db),
		payment.GatewayConfig{
			PaymentType: payment.ParsePaymentType(cfg.Snippe.PaymentType),
			Options:     urls,
		},
		gatewayLog,
	)

	// --- Webhook processor ---
	processor := webhook.NewProcessor(orders, cfg.Snippe.WebhookSecret, gatewayLog)
	if cfg.Telegram.Token != "" && cfg.Telegram.ReportChatID != 0 {
		reporter, err := notify.NewTelegramReporter(cfg.Telegram.Token, cfg.Telegram.ReportChatID, logger)
		if err != nil {
			logger.Warn("Telegram reports disabled", zap.Error(err))
		} else {
			processor.WithNotifier(reporter)
		}
	}

	// --- Webhook Deduper (Redis with in-memory fallback) ---
	deduper, dedupeErr := middleware.NewEventDeduper(
		cfg.Redis.Addr,
		cfg.Redis.Pass,
		cfg.Redis.DB,
		cfg.Redis.DedupTTL,
	)
	if dedupeErr != nil {
		logger.Warn("Redis unavailable for webhook dedup, using in-memory fallback", zap.Error(dedupeErr))
	}

	// --- Echo ---
	e := echo.New()
	e.HideBanner = true

	// --- Routes ---
	router.Setup(e, router.Deps{
		Orders:    orders,
		Method:    gateway,
		Snippe:    client,
		Processor: processor,
		Deduper:   deduper,
		URLs:      urls,
		APIKey:    cfg.API.Key,
		Logger:    logger,
	})

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg.Sync, orders, client, processor, gatewayLog)
	if err := scheduler.Start(); err != nil {
		return err
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting Snippe gateway server",
			zap.String("addr", addr),
			zap.Bool("test_mode", cfg.Snippe.TestMode),
		)
		if err := e.Start(addr); err != nil {
			logger.Info("Server stopped", zap.Error(err))
		}
	}()

	// --- Signals ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range quit {
		if sig != syscall.SIGHUP {
			break
		}
		// Only the gateway log switch is applied live; other settings need a restart.
		next, err := config.Reload()
		if err != nil {
			logger.Error("Config reload failed", zap.Error(err))
			continue
		}
		toggle.Set(next.Snippe.Logging)
		logger.Info("Config reloaded", zap.Bool("gateway_logging", next.Snippe.Logging))
	}

	logger.Info("Shutting down...")

	// Stop cron
	ctx := scheduler.Stop()
	<-ctx.Done()

	// Stop HTTP server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
	return nil
}
