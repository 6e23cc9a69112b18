package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amaze/internal/api"
	"amaze/internal/availability"
	"amaze/internal/booking"
	"amaze/internal/closures"
	"amaze/internal/config"
	"amaze/internal/metrics"
	"amaze/internal/models"
	"amaze/internal/notify"
	"amaze/internal/store"
	"amaze/internal/store/gcal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("AMAZE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Server.AdminToken == "" {
		logger.Fatal().Msg("set server.admin_token in config")
	}

	calendar, err := cfg.Calendar()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid schedule config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventStore, err := openStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open event store error")
	}

	registry := closures.NewRegistry(eventStore)
	engine := availability.NewEngine(calendar, registry, eventStore, cfg.Booking.Capacity, &logger)

	var rdb *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		engine.UseRedisCache(rdb, cfg.CacheTTL())
	}

	writer := booking.NewWriter(calendar, registry, engine, eventStore, cfg.Booking.Capacity, &logger)
	if cfg.Telegram.Enabled {
		notifier, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier error")
		}
		writer.UseNotifier(notifier)
	}

	manager := closures.NewManager(eventStore, calendar.SlotDuration(), &logger)
	manager.UseCacheInvalidator(engine.InvalidateDate)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, rdb, &logger)
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(cfg.Server.Address, engine, writer, manager, cfg.Server.AdminToken, cfg.Server.ReservesPerMinute, &logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
	}()

	if err := server.Start(); err != nil {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.EventStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory event store, data will not survive restarts")
		return store.NewMemory(), nil
	case "google":
		return gcal.New(ctx, gcal.Config{
			ClientID:     cfg.Store.Google.ClientID,
			ClientSecret: cfg.Store.Google.ClientSecret,
			TokenFile:    cfg.Store.Google.TokenFile,
			CalendarIDs: map[store.Collection]string{
				store.Reservations: cfg.Store.Google.ReservationsCalendar,
				store.Closures:     cfg.Store.Google.ClosuresCalendar,
			},
			Timeout: cfg.StoreTimeout(),
		}, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q: %w", cfg.Store.Driver, models.ErrValidation)
	}
}

func startHealthServer(ctx context.Context, port int, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if rdb != nil {
			ctxPing, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
