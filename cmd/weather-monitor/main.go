package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-monitor/internal/api/http"
	"github.com/i474232898/weather-monitor/internal/config"
	"github.com/i474232898/weather-monitor/internal/logging"
	"github.com/i474232898/weather-monitor/internal/scheduler"
	"github.com/i474232898/weather-monitor/internal/store"
	"github.com/i474232898/weather-monitor/internal/weather"
	"github.com/i474232898/weather-monitor/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logging.New(cfg.App.Name, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("starting weather monitor",
		zap.String("version", cfg.App.Version),
		zap.String("location", cfg.Weather.Location),
		zap.String("store", cfg.Store.Driver),
	)

	st, err := openStore(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to open store", zap.Error(err))
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		lg.Fatal("failed to ensure indexes", zap.Error(err))
	}

	target := weather.Location{
		Label: cfg.Weather.Location,
		Lat:   cfg.Weather.Lat,
		Lon:   cfg.Weather.Lon,
	}

	provider := providers.NewOpenWeatherProvider(
		providers.NewHTTPClient(providers.DefaultTimeout),
		providers.OpenWeatherConfig{
			BaseURL: cfg.Weather.APIURL,
			APIKey:  cfg.Weather.APIKey,
			Units:   cfg.Weather.Units,
			Target:  target,
		},
		lg.Named("openweather"),
	)

	ingest := weather.NewIngestJob(provider, weather.NewNormalizer(target.Key()), st, lg.Named("ingest"))
	retain := weather.NewRetentionJob(st, target.Key(), lg.Named("retain"))
	service := weather.NewService(st, ingest, target.Key(), lg.Named("service"))

	sched := scheduler.New(scheduler.Config{
		Interval:      cfg.UpdateInterval(),
		RetentionAt:   cfg.Schedule.RetentionAt,
		RetentionDays: cfg.Schedule.RetentionDays,
	}, ingest, retain, lg)
	if err := sched.Start(); err != nil {
		// Degraded mode: no automatic ingestion, refresh still works.
		lg.Error("failed to start scheduler", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimSpace(cfg.App.CORSOrigins),
	}))

	httpapi.RegisterRoutes(app, service, httpapi.Info{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
		Driver:  cfg.Store.Driver,
	})

	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			lg.Error("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during http shutdown", zap.Error(err))
	}
	sched.Stop()
	if err := st.Close(shutdownCtx); err != nil {
		lg.Error("error closing store", zap.Error(err))
	}
	lg.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (weather.Store, error) {
	var (
		st  weather.Store
		err error
	)

	switch cfg.Store.Driver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		st, err = store.NewMongoStore(connectCtx, store.MongoConfig{
			URI:        cfg.Store.MongoURI,
			Database:   cfg.Store.MongoDB,
			Collection: cfg.Store.MongoCollection,
		})
	case "postgres":
		st, err = store.ConnectPostgresWithRetry(ctx, cfg.Store.PostgresDSN, 10, 2*time.Second)
	default:
		st = store.NewMemoryStore()
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.RedisAddr == "" {
		return st, nil
	}
	client, err := store.NewRedisClient(ctx, store.RedisConfig{
		Addr:     cfg.Store.RedisAddr,
		Password: cfg.Store.RedisPassword,
		DB:       cfg.Store.RedisDB,
	})
	if err != nil {
		lg.Warn("redis unavailable, serving without cache", zap.Error(err))
		return st, nil
	}
	return store.NewCachedStore(st, client, cfg.RedisCacheTTL(), lg.Named("cache")), nil
}
