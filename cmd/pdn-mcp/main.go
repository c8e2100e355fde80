package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/multierr"

	"github.com/dmmcquay/pdn-mcp/internal/cache"
	"github.com/dmmcquay/pdn-mcp/internal/config"
	"github.com/dmmcquay/pdn-mcp/internal/health"
	"github.com/dmmcquay/pdn-mcp/internal/library"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	mcptools "github.com/dmmcquay/pdn-mcp/internal/mcp"
	"github.com/dmmcquay/pdn-mcp/internal/metrics"
	"github.com/dmmcquay/pdn-mcp/internal/ratelimit"
	"github.com/dmmcquay/pdn-mcp/internal/retry"
	httpserver "github.com/dmmcquay/pdn-mcp/internal/server"
	"github.com/dmmcquay/pdn-mcp/internal/shutdown"
	"github.com/dmmcquay/pdn-mcp/internal/similarity"
	"github.com/dmmcquay/pdn-mcp/internal/store"
)

var (
	// Version information injected at build time.
	GitCommit string = "unknown"
	BuildTime string = "unknown"
)

// status is served on /stats.
type status struct {
	Version   string           `json:"version"`
	GitCommit string           `json:"gitCommit"`
	Metrics   metrics.Snapshot `json:"metrics"`
	Cache     cache.Stats      `json:"cache"`
	RateLimit ratelimit.Status `json:"rateLimit"`
}

func main() {
	var (
		showVersion bool
		configPath  string
	)
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	flag.Parse()

	if showVersion {
		fmt.Printf("pdn-mcp version %s\n", config.Default().Server.Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build time: %s\n", BuildTime)
		os.Exit(0)
	}

	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLoggerFromConfig(&logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.LogFormat(cfg.Logging.Format),
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		Prefix:  cfg.Logging.Prefix,
		File:    &cfg.Logging.File,
	})
	logger.Info("Starting PDN MCP Server version %s (commit: %s, built: %s)",
		cfg.Server.Version, GitCommit, BuildTime)

	err = run(cfg, logger)
	if err != nil {
		logger.Error("Server exited with error", "error", err)
	}
	// The log file outlives every other component.
	if logCloser != nil {
		if cerr := logCloser.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", cerr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.ContextLogger) error {
	ctx := context.Background()
	shutdowns := shutdown.NewManager(logger)

	var db *store.Store
	err := retry.NewManager(retry.StoreConfig(cfg.Storage.OpenAttempts)).
		RetryIf(store.IsBusy).
		Notify(func(attempt int, delay time.Duration, err error) {
			logger.Warn("Store is locked, retrying", "attempt", attempt, "delay", delay, "error", err)
		}).
		Run(ctx, func(ctx context.Context) error {
			var err error
			db, err = store.Open(ctx, cfg.Storage.Path)
			return err
		})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	logger.Info("Opened collection store", "path", cfg.Storage.Path)
	shutdowns.Register("store", func(context.Context) error { return db.Close() })

	prom := metrics.NewPrometheusCollector()
	collector := metrics.NewCollector()

	parser := cache.NewManager(&cfg.Cache, logger)
	parser.SetRecorder(prom)

	comparator := similarity.NewComparator(cfg.Compare.Workers)
	logger.Info("Comparator ready", "workers", comparator.Workers())

	lib := library.New(db, parser, comparator, cfg.Upload, logger)

	rateLimiter := ratelimit.NewLimiter(&cfg.RateLimit, logger)
	shutdowns.Register("rate limiter", func(context.Context) error {
		rateLimiter.Close()
		return nil
	})

	checker := health.NewChecker(logger, cfg.Server.Version, GitCommit)
	checker.RegisterCheck("store", health.StoreCheck(db, prom))
	checker.RegisterCheck("parser", health.ParserCheck())

	httpServer := httpserver.NewHTTPServer(cfg.Server.HealthAddr, logger, checker, func() interface{} {
		return status{
			Version:   cfg.Server.Version,
			GitCommit: GitCommit,
			Metrics:   collector.Snapshot(),
			Cache:     parser.Stats(),
			RateLimit: rateLimiter.Status(),
		}
	})
	if err := httpServer.Start(); err != nil {
		// Close what was already opened.
		return multierr.Append(fmt.Errorf("failed to start health server: %w", err),
			shutdowns.Shutdown(shutdown.DefaultTimeout))
	}
	logger.Info("Health check server started", "addr", httpServer.Addr())
	shutdowns.Register("http", httpServer.Stop)

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	tools := mcptools.NewToolsHandler(parser, comparator, lib, collector, logger)
	tools.SetMiddleware(mcptools.NewMiddleware(logger, collector, rateLimiter))
	tools.RegisterTools(mcpServer)

	stopSignals := shutdowns.HandleSignals()
	defer stopSignals()

	logger.Info("PDN MCP Server ready")

	done := make(chan error, 1)
	go func() {
		done <- server.ServeStdio(mcpServer)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
		return shutdowns.Shutdown(shutdown.DefaultTimeout)
	case <-shutdowns.Done():
		logger.Info("Server stopped by signal")
		return shutdowns.Shutdown(shutdown.DefaultTimeout)
	}
}
