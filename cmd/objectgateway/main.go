// Package main implements the entry point for the object gateway, a
// schema-driven generic object API backed by a canonical store with an
// optional read-optimized cache mirror.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/c360/objectgateway/cachestore"
	"github.com/c360/objectgateway/canonical"
	"github.com/c360/objectgateway/canonical/natskv"
	"github.com/c360/objectgateway/config"
	"github.com/c360/objectgateway/dispatcher"
	"github.com/c360/objectgateway/events"
	gatewayhttp "github.com/c360/objectgateway/gateway/http"
	"github.com/c360/objectgateway/metric"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "objectgateway"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	nc, err := connectNATS(cfg, logger)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close()
	}

	store, err := buildStore(ctx, cfg, nc)
	if err != nil {
		return err
	}

	metricsRegistry := metric.NewMetricsRegistry()

	cache, err := buildCache(ctx, cfg, store, logger, metricsRegistry)
	if err != nil {
		return err
	}

	var emitter events.Emitter = events.Nop{}
	if nc != nil {
		emitter, err = events.NewNATSEmitter(nc, logger, cfg.NATS.ReplyWindow)
		if err != nil {
			return err
		}
	}

	d, err := dispatcher.New(dispatcher.Config{
		Store:   store,
		Cache:   cache,
		Emitter: emitter,
		Translator: &cachestore.Translator{
			Logger:                logger,
			EnforceAttributeFlags: cfg.Defaults.EnforceAttributeFlags,
			DefaultLimit:          cfg.Defaults.PageLimit,
		},
		Logger:  logger,
		Metrics: metricsRegistry,
	})
	if err != nil {
		return err
	}

	gw, err := gatewayhttp.NewGateway(gatewayhttp.Config{
		Addr:           cfg.HTTP.Addr,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxRequestSize: cfg.HTTP.MaxRequestSize,
	}, d, store, logger)
	if err != nil {
		return err
	}

	return serve(cfg, gw, metricsRegistry, logger, cliCfg.ShutdownTimeout)
}

// connectNATS dials NATS when a URL is configured. No URL means no KV
// backend and no event emission.
func connectNATS(cfg *config.Config, logger *slog.Logger) (*nats.Conn, error) {
	if cfg.NATS.URL == "" {
		logger.Info("NATS disabled, events will not be emitted")
		return nil, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(cfg.NATS.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	logger.Info("connected to NATS", "url", cfg.NATS.URL)
	return nc, nil
}

func buildStore(ctx context.Context, cfg *config.Config, nc *nats.Conn) (canonical.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return canonical.NewMemory(), nil
	case config.StoreBackendNATSKV:
		return natskv.New(ctx, nc)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildCache creates the Mongo mirror engine when configured; otherwise
// the dispatcher falls back to canonical passthrough. The mirror is
// reconciled once at startup.
func buildCache(ctx context.Context, cfg *config.Config, store canonical.Store,
	logger *slog.Logger, registry *metric.MetricsRegistry) (cachestore.Cache, error) {
	if cfg.Mongo.URI == "" {
		logger.Info("cache mirror disabled, serving queries from canonical store")
		return nil, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	engine, err := cachestore.NewEngine(ctx, cachestore.EngineConfig{
		Client:     client,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		Canonical:  store,
		Logger:     logger,
		Metrics:    registry,
	})
	if err != nil {
		return nil, err
	}

	if err := engine.Reconcile(ctx); err != nil {
		logger.Warn("startup reconciliation failed, mirror may lag", "error", err)
	}
	return engine, nil
}

// serve runs the API and metrics listeners until a shutdown signal.
func serve(cfg *config.Config, gw *gatewayhttp.Gateway,
	registry *metric.MetricsRegistry, logger *slog.Logger, shutdownTimeout time.Duration) error {

	apiServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.HTTP.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", registry.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.HTTP.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gateway listening", "addr", cfg.HTTP.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info("metrics listening", "addr", cfg.HTTP.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api server shutdown incomplete", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown incomplete", "error", err)
		}
	}
	return nil
}
