package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	relayhttp "github.com/edupulse/notify-relay/internal/adapter/http"
	relaynats "github.com/edupulse/notify-relay/internal/adapter/nats"
	"github.com/edupulse/notify-relay/internal/adapter/otel"
	"github.com/edupulse/notify-relay/internal/adapter/postgres"
	"github.com/edupulse/notify-relay/internal/adapter/realtime"
	"github.com/edupulse/notify-relay/internal/adapter/ristretto"
	"github.com/edupulse/notify-relay/internal/adapter/ws"
	"github.com/edupulse/notify-relay/internal/config"
	"github.com/edupulse/notify-relay/internal/logger"
	"github.com/edupulse/notify-relay/internal/middleware"
	"github.com/edupulse/notify-relay/internal/port/broadcast"
	"github.com/edupulse/notify-relay/internal/port/cache"
	"github.com/edupulse/notify-relay/internal/port/listener"
	"github.com/edupulse/notify-relay/internal/service"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer closeLog.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"listen_channel", cfg.Postgres.ListenChannel,
		"realtime_enabled", cfg.Realtime.Enabled,
		"nats_enabled", cfg.NATS.Enabled,
		"dedupe_enabled", cfg.Dedupe.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	// --- Sinks ---

	hub := ws.NewHub()
	sinks := []broadcast.Sink{ws.NewSink(hub)}

	if cfg.Realtime.Enabled {
		sinks = append(sinks, realtime.NewBroadcaster(
			cfg.Realtime.URL, cfg.Realtime.Key, cfg.Realtime.Topic, cfg.Realtime.Timeout))
	}

	var natsSink *relaynats.Sink
	if cfg.NATS.Enabled {
		natsSink, err = relaynats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsSink.Close() }()
		sinks = append(sinks, natsSink)
	}

	sinkNames := make([]string, 0, len(sinks))
	for _, s := range sinks {
		sinkNames = append(sinkNames, s.Name())
	}

	// --- Relay service ---

	var dedupe cache.Cache
	if cfg.Dedupe.Enabled {
		rc, err := ristretto.New(cfg.Dedupe.MaxSizeMB << 20)
		if err != nil {
			return fmt.Errorf("dedupe cache: %w", err)
		}
		defer rc.Close()
		dedupe = rc
	}

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	relay := service.NewRelay(sinks, dedupe, cfg.Dedupe.TTL, metrics)

	var lst listener.Listener = postgres.NewListener(cfg.Postgres.DSN, cfg.Postgres.ListenChannel)

	// --- HTTP ---

	handlers := &relayhttp.Handlers{
		Relay:         relay,
		Hub:           hub,
		ListenChannel: cfg.Postgres.ListenChannel,
		Sinks:         sinkNames,
	}
	if natsSink != nil {
		handlers.NATS = natsSink
	}

	r := chi.NewRouter()
	r.Use(relayhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(relayhttp.Logger)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	relayhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := lst.Listen(gctx, func(ctx context.Context, payload []byte) {
			_, _ = relay.HandleRaw(ctx, payload)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
