// Command stagetrack runs the stage tracking MCP server. It answers
// stage-transition questions against the recruitment ATS and exposes
// candidate maintenance tools over stdio or streamable HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talentops/stagetrack/internal/cache"
	"github.com/talentops/stagetrack/internal/config"
	"github.com/talentops/stagetrack/internal/engine"
	mcpserver "github.com/talentops/stagetrack/internal/mcp"
	"github.com/talentops/stagetrack/internal/metrics"
	"github.com/talentops/stagetrack/internal/repo"
	"github.com/talentops/stagetrack/internal/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheProvider := newCacheProvider(logger, cfg.Cache)
	defer cacheProvider.Close()

	client := repo.NewClient(repo.Config{
		BaseURL: cfg.Clients.ATS.BaseURL,
		APIKey:  cfg.Clients.ATS.APIKey,
		Timeout: cfg.Clients.ATS.Timeout,
		Fields: repo.FieldIDs{
			DiscordID:  cfg.Fields.DiscordID,
			Subscriber: cfg.Fields.Subscriber,
			StageName:  cfg.Fields.StageName,
			StageDate:  cfg.Fields.StageDate,
			ActiveFlag: cfg.Fields.ActiveFlag,
			Guarantee:  cfg.Fields.Guarantee,
			Zone:       cfg.Fields.Zone,
			Province:   cfg.Fields.Province,
		},
		DisqualifiedByID: cfg.Fields.DisqualifiedByID,
	}, cacheProvider, cfg.Cache.CountsTTL, cfg.Cache.FieldDefsTTL)

	eng := engine.New(logger, client)

	server := mcpserver.New(logger, eng, client, mcpserver.Lookups{
		Departments: cfg.Lookups.Departments,
		Locations:   cfg.Lookups.Locations,
	})

	if cfg.Server.MetricsAddress != "" {
		go serveMetrics(ctx, logger, cfg.Server.MetricsAddress, cfg.Server.GracefulTimeout)
	}

	if cfg.Server.HTTPAddress != "" {
		logger.Info("starting MCP server", slog.String("transport", "http"), slog.String("address", cfg.Server.HTTPAddress))
		err = server.ServeHTTP(ctx, cfg.Server.HTTPAddress, cfg.Server.GracefulTimeout)
	} else {
		logger.Info("starting MCP server", slog.String("transport", "stdio"))
		err = server.Serve(ctx)
	}
	if err != nil {
		logger.Error("MCP server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// newCacheProvider returns the Valkey provider when caching is enabled, and
// falls back to the no-op provider when it is disabled or unreachable.
func newCacheProvider(logger *slog.Logger, cfg config.CacheConfig) cache.Provider {
	if !cfg.Enabled || cfg.Addr == "" {
		return cache.NoopProvider{}
	}

	provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", slog.Any("error", err))
		return cache.NoopProvider{}
	}
	logger.Info("cache connected", slog.String("addr", cfg.Addr))
	return provider
}

// serveMetrics exposes the Prometheus endpoint until the context ends.
func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, gracefulTimeout time.Duration) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", slog.String("address", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
