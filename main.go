package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/infra-memory/internal/cache"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/config"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/graph"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/logging"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/memory"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/server"
	"github.com/wagnerlima/memory-cloud/infra-memory/internal/storage"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// serveOptions holds command line overrides for the loaded configuration.
type serveOptions struct {
	transport string
	port      string
	dbPath    string
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infra-memory",
		Short: "Infrastructure knowledge graph memory for MCP clients",
	}
	cmd.AddCommand(newServeCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory tools over MCP",
		Long: `Serve the infrastructure memory tools over MCP.

Configuration is read from MEMORY_* environment variables (and an optional
.env file); the flags below override it.

Example:
  infra-memory serve
  infra-memory serve --transport http --port 8081 --db ./data/memory.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Transport = opts.transport
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = opts.port
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = opts.dbPath
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "transport mode: stdio or http")
	cmd.Flags().StringVar(&opts.port, "port", "8081", "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.Open(cfg.DBPath, cfg.Vocabulary, storage.WithLogger(logger.Named("storage")))
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var queryCache *cache.Cache
	if cfg.CacheMaxBytes > 0 {
		queryCache = cache.New(
			cache.WithMaxBytes(cfg.CacheMaxBytes),
			cache.WithTTL(cfg.CacheTTL),
			cache.WithLogger(logger.Named("cache")),
			cache.WithMetrics(cache.NewMetrics(reg)),
		)
	}

	svc := memory.New(store, queryCache, logger.Named("memory"),
		graph.WithMaxResults(cfg.ExpandMaxResults),
		graph.WithTimeout(cfg.ExpandTimeout),
	)
	srv := server.New(svc, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cfg.Transport {
	case "stdio":
		logger.Info("memory server starting", zap.String("transport", "stdio"), zap.String("db", cfg.DBPath))
		return srv.Run(ctx, &mcp.StdioTransport{})
	case "http":
		return serveHTTP(ctx, cfg, srv, reg, logger)
	default:
		return fmt.Errorf("unknown transport: %s (use stdio or http)", cfg.Transport)
	}
}

func serveHTTP(ctx context.Context, cfg *config.Config, srv *mcp.Server, reg *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return srv
	}, nil))
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("memory server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("metrics", cfg.MetricsPath),
			zap.String("db", cfg.DBPath))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
