package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"privatize-quote/internal/bot"
	"privatize-quote/internal/config"
	"privatize-quote/internal/distance"
	"privatize-quote/internal/httpapi"
	"privatize-quote/internal/quote"
	"privatize-quote/internal/service"
	"privatize-quote/internal/storage"
	redisstore "privatize-quote/internal/storage/redis"
	"privatize-quote/pkg/logger"
	"privatize-quote/pkg/redis"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit")
	rollback := flag.Bool("rollback", false, "roll back the last migration and exit")
	migrateStatus := flag.Bool("migrate-status", false, "print migration status and exit")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, zapLogger, migrationMode{*migrateOnly, *rollback, *migrateStatus}); err != nil {
		zapLogger.Fatal("Quoter stopped with error", zap.Error(err))
	}
	zapLogger.Info("Quoter shutdown gracefully")
}

type migrationMode struct {
	only     bool
	rollback bool
	status   bool
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, mm migrationMode) (err error) {
	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		return err
	}

	redisClient := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SessionTTL)
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	pgStorage, err := storage.NewPostgresStorage(ctx, cfg.Database, redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to init PostgreSQL storage: %w", err)
	}
	defer func() { err = multierr.Append(err, pgStorage.Close()) }()

	switch {
	case mm.rollback:
		return storage.RollbackMigration(ctx, pgStorage.DB(), log)
	case mm.status:
		return storage.MigrationStatus(ctx, pgStorage.DB(), log)
	}
	if err := storage.RunMigrations(ctx, pgStorage.DB(), log); err != nil {
		return err
	}
	if mm.only {
		return nil
	}

	catalog, err := service.LoadCachedCatalog(ctx, pgStorage, redisClient, cfg.Redis.CatalogCacheTTL, log)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("Catalog loaded", zap.Int("products", len(catalog.Data().Products)))

	resolver := distance.NewCached(distance.New(cfg.Distance, log), redisClient, cfg.Redis.DistanceTTL, log)
	sessions := redisstore.New(redisClient.Raw(), cfg.Redis.SessionTTL)

	var notifier quote.Notifier
	if cfg.Telegram.Token != "" {
		adminBot, err := bot.New(cfg.Telegram, cfg.ReportsDir, pgStorage, log)
		if err != nil {
			return fmt.Errorf("failed to create bot: %w", err)
		}
		notifier = adminBot
		go func() {
			if err := adminBot.Start(ctx); err != nil {
				log.Error("Admin bot stopped", zap.Error(err))
			}
		}()
	}

	svc, err := service.New(service.Deps{
		Pricing:  pricing,
		Catalog:  catalog,
		Sessions: sessions,
		Distance: resolver,
		Quotes:   pgStorage,
		Notifier: notifier,
		ReloadCatalog: func(ctx context.Context) (*quote.CatalogSnapshot, error) {
			if err := service.InvalidateCatalog(ctx, redisClient); err != nil {
				log.Warn("Failed to invalidate cached catalog", zap.Error(err))
			}
			return service.LoadCachedCatalog(ctx, pgStorage, redisClient, cfg.Redis.CatalogCacheTTL, log)
		},
		ReportsDir:      cfg.ReportsDir,
		DistanceTimeout: cfg.Distance.Timeout,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	api := httpapi.New(httpapi.Config{
		AllowedOrigins:  cfg.AllowedOrigins,
		AdminAPIKey:     cfg.AdminAPIKey,
		SessionRate:     cfg.SessionRate,
		SessionRateSpan: cfg.SessionRateSpan,
		ReportsDir:      cfg.ReportsDir,
	}, svc, log,
		httpapi.WithAdmin(pgStorage),
		httpapi.WithRateLimit(sessions),
		httpapi.WithHealthCheck("postgres", pgStorage.Ping),
		httpapi.WithHealthCheck("redis", redisClient.Ping),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
