package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfline/shelfline/internal/app"
	"github.com/shelfline/shelfline/internal/catalog"
	"github.com/shelfline/shelfline/internal/cogs"
	"github.com/shelfline/shelfline/internal/dashboard"
	"github.com/shelfline/shelfline/internal/items"
	"github.com/shelfline/shelfline/internal/lots"
	"github.com/shelfline/shelfline/internal/platform/cache"
	"github.com/shelfline/shelfline/internal/platform/db"
	"github.com/shelfline/shelfline/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, cogs reads uncached", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	statsCache := dashboard.NewSlotCache(cfg.StatsTTL, shared.SystemClock)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)

	cogsRepo := cogs.NewRepository(pool)
	cogsCache := cogs.NewCache(redisClient)
	cogsService := cogs.NewService(cogsRepo, cogsCache, logger)

	itemsRepo := items.NewRepository(pool)
	itemsService := items.NewService(itemsRepo, catalogService, cogsService, statsCache, logger, shared.SystemClock)

	lotsRepo := lots.NewRepository(pool)
	lotsService := lots.NewService(lotsRepo, statsCache, logger, shared.SystemClock)

	dashboardRepo := dashboard.NewRepository(pool)
	dashboardService := dashboard.NewService(dashboardRepo, statsCache, logger)

	devMode := cfg.IsDevelopment()
	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		ItemsHandler:     items.NewHandler(logger, itemsService, devMode),
		LotsHandler:      lots.NewHandler(logger, lotsService, devMode),
		COGSHandler:      cogs.NewHandler(logger, cogsService, devMode),
		DashboardHandler: dashboard.NewHandler(logger, dashboardService, devMode),
		CatalogHandler:   catalog.NewHandler(logger, catalogService, devMode),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
