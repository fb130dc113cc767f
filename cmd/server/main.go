// Command server runs the repair-order dashboard API.
//
// Startup order matters: configuration and logging come first so every later
// failure is reported consistently; the idempotency store and the Graph
// workbook pipeline are wired next; schema verification runs before the HTTP
// listener accepts traffic so a misconfigured sheet fails loudly at boot
// instead of corrupting rows at first write.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/skylinemro/ro-dashboard/internal/config"
	"github.com/skylinemro/ro-dashboard/internal/graph"
	httpapi "github.com/skylinemro/ro-dashboard/internal/http"
	"github.com/skylinemro/ro-dashboard/internal/observability"
	"github.com/skylinemro/ro-dashboard/internal/reminder"
	"github.com/skylinemro/ro-dashboard/internal/repo"
	"github.com/skylinemro/ro-dashboard/internal/services"
	"github.com/skylinemro/ro-dashboard/internal/session"
	"github.com/skylinemro/ro-dashboard/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()
	logger.Info().Str("version", version).Str("port", cfg.Port).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open idempotency store")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate idempotency store")
	}

	token := sysutil.FirstNonEmpty(os.Getenv("GRAPH_TOKEN"), os.Getenv("GRAPH_ACCESS_TOKEN"))
	if token == "" {
		logger.Fatal().Msg("GRAPH_TOKEN must be set")
	}

	client := graph.NewClient(graph.Options{
		BaseURL:     cfg.Graph.BaseURL,
		SiteURL:     cfg.Graph.SiteURL,
		FileName:    cfg.Graph.FileName,
		HTTPTimeout: cfg.Graph.HTTPTimeout,
		Logger:      logger.With().Str("component", "graph").Logger(),
	}, graph.StaticTokenSource(token))

	sessions := session.NewManager(client, session.Config{
		MaxAge:      cfg.Graph.SessionMaxAge,
		MaxAttempts: cfg.Graph.RetryMax,
		BaseDelay:   cfg.Graph.RetryBase,
		Logger:      logger.With().Str("component", "session").Logger(),
	})

	reminders := reminder.NewDispatcher(client, logger.With().Str("component", "reminder").Logger())

	roRepo := repo.NewRepairOrders(client, sessions, cfg.Graph.ROTable, cfg.Graph.ArchiveTable,
		reminders, logger.With().Str("component", "ro_repo").Logger())
	shopRepo := repo.NewShops(client, sessions, cfg.Graph.ShopTable,
		logger.With().Str("component", "shop_repo").Logger())

	// Fail fast on a mislaid or reordered sheet.
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.Graph.HTTPTimeout)
	if err := roRepo.VerifySchema(verifyCtx); err != nil {
		cancel()
		logger.Fatal().Err(err).Str("table", cfg.Graph.ROTable).Msg("workbook schema check failed")
	}
	if cfg.Graph.ShopTable != "" {
		if err := shopRepo.VerifySchema(verifyCtx); err != nil {
			cancel()
			logger.Fatal().Err(err).Str("table", cfg.Graph.ShopTable).Msg("workbook schema check failed")
		}
	}
	cancel()

	roSvc := services.NewRepairOrderService(roRepo)
	shopSvc := services.NewShopService(shopRepo)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:           db,
		RepairOrders: roSvc,
		Shops:        shopSvc,
		Health:       sessions.CheckHealth,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info().Str("addr", srv.Addr).Msg("listening")

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Let in-flight calendar reminders finish before the process exits.
	reminders.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("stopped")
}
