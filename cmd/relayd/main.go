// relayd runs the card-market relay and indexer.
// Usage: relayd --config configs/relay.local.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardbazaar/ledger/internal/bus"
	"github.com/cardbazaar/ledger/internal/config"
	"github.com/cardbazaar/ledger/internal/indexer"
	"github.com/cardbazaar/ledger/internal/metrics"
	"github.com/cardbazaar/ledger/internal/relay"
	"github.com/cardbazaar/ledger/internal/store"
	"github.com/cardbazaar/ledger/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Optional .env for local development; ignore a missing file.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting relayd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	var cfg *config.RelayConfig
	var err error
	if *configPath != "" {
		cfg, err = config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Event log backend
	var eventLog store.Store
	switch cfg.Storage.Backend {
	case "postgres":
		logger.Info("connecting to event log",
			"host", cfg.Storage.Postgres.Host,
			"port", cfg.Storage.Postgres.Port,
			"database", cfg.Storage.Postgres.Name,
		)
		eventLog, err = store.NewPostgres(ctx, store.PostgresConfig{
			ConnString: cfg.Storage.Postgres.ConnString(),
			MinConns:   cfg.Storage.Postgres.MinConns,
			MaxConns:   cfg.Storage.Postgres.MaxConns,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to event log", "error", err)
			os.Exit(1)
		}
	default:
		eventLog = store.NewMemory()
	}
	defer eventLog.Close()

	m := metrics.New()
	changeBus := bus.New(logger)

	idx := indexer.New(indexer.Config{
		QueueSize: cfg.Indexer.QueueSize,
	}, eventLog, changeBus, m, logger)
	if err := idx.Start(ctx); err != nil {
		logger.Error("failed to start indexer", "error", err)
		os.Exit(1)
	}

	// Warm the views from whatever the event log already holds.
	if err := idx.Rebuild(ctx); err != nil {
		logger.Error("failed to replay event log", "error", err)
		os.Exit(1)
	}

	relaySrv := relay.NewServer(relay.Config{
		PingInterval:       cfg.Server.PingInterval,
		WriteTimeout:       cfg.Server.WriteTimeout,
		OutboundBufferSize: cfg.Server.OutboundBufferSize,
		MaxMessageBytes:    cfg.Limits.MaxMessageBytes,
		MinKind:            cfg.Limits.MinKind,
		MaxKind:            cfg.Limits.MaxKind,
		RateWindow:         cfg.Limits.RateWindow,
		RateCap:            cfg.Limits.RateCap,
	}, eventLog, idx, m, logger)
	if err := relaySrv.Start(ctx); err != nil {
		logger.Error("failed to start relay", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WSPath, relaySrv.Handler())
	mux.Handle(cfg.Metrics.Path, m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"version":   version.Version,
			"watermark": idx.Watermark(),
		})
	})

	httpSrv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening",
			"addr", cfg.Server.ListenAddr,
			"ws_path", cfg.Server.WSPath,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := relaySrv.Stop(shutdownCtx); err != nil {
		logger.Warn("relay stop", "error", err)
	}
	if err := idx.Stop(shutdownCtx); err != nil {
		logger.Warn("indexer stop", "error", err)
	}

	logger.Info("relayd stopped")
}
