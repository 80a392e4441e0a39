// Package main is the entry point for greetd, the greeting service built
// on the http-tools dispatch engine.
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

	"github.com/Jon-Davis/http-tools/dispatch"
	"github.com/Jon-Davis/http-tools/internal/greetd"
	"github.com/Jon-Davis/http-tools/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 15 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	run(cfg, flags.configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GREETD_CONFIG_PATH", "configs/greetd.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GREETD_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GREETD_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("greetd version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, def string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return def
}

// initLogger initializes the logger from the command line flags.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *greetd.Config {
	logger.Info("starting greetd",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := greetd.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	return cfg
}

// run wires the store, server, watcher, and metrics together and blocks
// until shutdown completes.
func run(cfg *greetd.Config, configPath string, logger observability.Logger) {
	ctx := context.Background()

	tracer, err := observability.NewTracer(cfg.Tracing)
	if err != nil {
		logger.Fatal("failed to initialize tracing", observability.Error(err))
	}

	metrics := dispatch.NewMetrics("httptools")

	store := buildStore(ctx, cfg, metrics, logger)

	server := greetd.NewServer(cfg, store,
		greetd.WithServerLogger(logger),
		greetd.WithServerMetrics(metrics),
		greetd.WithServerTracer(tracer.Tracer()),
	)

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsServer := startMetricsServer(cfg, metrics, logger)
	watcher := startConfigWatcher(ctx, configPath, server, logger)

	go func() {
		logger.Info("http server listening",
			observability.String("address", cfg.Listen),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", observability.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", observability.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", observability.Error(err))
		}
	}
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Error("config watcher stop", observability.Error(err))
		}
	}

	server.Close()

	if err := store.Close(); err != nil {
		logger.Error("store close", observability.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("tracer shutdown", observability.Error(err))
	}

	logger.Info("greetd stopped")
}

// buildStore creates the configured greeting store, instrumented when
// metrics are enabled.
func buildStore(
	ctx context.Context,
	cfg *greetd.Config,
	metrics *dispatch.Metrics,
	logger observability.Logger,
) greetd.Store {
	var store greetd.Store

	switch cfg.Store.Backend {
	case greetd.BackendRedis:
		redisStore, err := greetd.NewRedisStore(ctx, cfg.Store.Redis,
			greetd.WithRedisLogger(logger),
		)
		if err != nil {
			logger.Fatal("failed to connect to redis", observability.Error(err))
		}
		logger.Info("using redis greeting store",
			observability.String("address", cfg.Store.Redis.Address),
		)
		store = redisStore
	default:
		logger.Info("using in-memory greeting store")
		store = greetd.NewMemoryStore()
	}

	if cfg.Metrics.Enabled {
		store = greetd.InstrumentStore(store, greetd.NewStoreMetrics(metrics.Registry()))
	}
	return store
}

// startMetricsServer starts the metrics endpoint on its own listener, or
// returns nil when metrics are disabled.
func startMetricsServer(
	cfg *greetd.Config,
	metrics *dispatch.Metrics,
	logger observability.Logger,
) *http.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())

	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening",
			observability.String("address", cfg.Metrics.Listen),
			observability.String("path", cfg.Metrics.Path),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", observability.Error(err))
		}
	}()

	return srv
}

// startConfigWatcher starts watching the configuration file, applying
// reloadable settings to the running server. Watcher failure is not
// fatal; the service keeps running with its startup configuration.
func startConfigWatcher(
	ctx context.Context,
	configPath string,
	server *greetd.Server,
	logger observability.Logger,
) *greetd.Watcher {
	watcher, err := greetd.NewWatcher(configPath,
		func(cfg *greetd.Config) { server.ApplyConfig(cfg) },
		greetd.WithWatcherLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Error("failed to start config watcher", observability.Error(err))
		return nil
	}

	return watcher
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown(logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("shutdown signal received")
}
