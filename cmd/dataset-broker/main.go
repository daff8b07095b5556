package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/statkit/dataset-broker/configs"
	"github.com/statkit/dataset-broker/internal/app"
	"github.com/statkit/dataset-broker/internal/audit"
	"github.com/statkit/dataset-broker/internal/broker"
	"github.com/statkit/dataset-broker/internal/config"
	"github.com/statkit/dataset-broker/internal/fetch"
	"github.com/statkit/dataset-broker/internal/log"
	"github.com/statkit/dataset-broker/internal/render"
	"github.com/statkit/dataset-broker/internal/runtime"
	"github.com/statkit/dataset-broker/internal/sources"
	"github.com/statkit/dataset-broker/internal/specstore"
	"github.com/statkit/dataset-broker/internal/timeutil"
)

func main() {
	embeddedConfig := flag.String("embedded-config", "", "Use embedded config from configs/ (filename)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel)

	var rendered []byte
	if embeddedConfig != nil && *embeddedConfig != "" {
		raw, err := configs.Load(*embeddedConfig)
		if err != nil {
			logger.Error("load embedded config failed", "error", err)
			os.Exit(1)
		}
		rendered, err = render.RenderBytes(*embeddedConfig, raw)
		if err != nil {
			logger.Error("render config failed", "error", err)
			os.Exit(1)
		}
	} else {
		rendered, err = render.RenderFile(cfg.ConfigPath)
		if err != nil {
			logger.Error("render config failed", "error", err)
			os.Exit(1)
		}
	}

	fileCfg, err := sources.Load(rendered)
	if err != nil {
		logger.Error("parse config failed", "error", err)
		os.Exit(1)
	}

	registry, err := broker.DefaultRegistry(fileCfg.Upstream)
	if err != nil {
		logger.Error("build tool registry failed", "error", err)
		os.Exit(1)
	}

	store := specstore.New()
	fetcher := fetch.NewHTTP(fetch.Options{
		Timeout:       timeutil.ParseDurationOrDefault(fileCfg.Upstream.Timeout, 15*time.Second),
		RatePerMinute: fileCfg.Upstream.RatePerMinute,
	})
	auditLog := audit.New(logger)
	coordinator := broker.New(store, fetcher, registry, logger, auditLog)

	builder := runtime.Builder{
		Logger:      logger,
		Audit:       auditLog,
		Coordinator: coordinator,
	}
	server, err := builder.Build(fileCfg)
	if err != nil {
		logger.Error("build server failed", "error", err)
		os.Exit(1)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		logger.Warn("shutdown requested", "signal", sig.String())
		cancel()
	}()

	go runSweeper(baseCtx, coordinator, fileCfg.Server.SpecStore, logger)

	switch fileCfg.Server.Transport {
	case "stdio":
		if err := runStdio(baseCtx, server); err != nil {
			logger.Error("runtime error", "error", err)
			os.Exit(1)
		}
		return
	default:
		if err := runHTTP(baseCtx, cfg, fileCfg, server, logger); err != nil {
			logger.Error("runtime error", "error", err)
			os.Exit(1)
		}
	}
}

// runSweeper drives spec expiry. The store itself never runs timers; aging
// is a pure threshold over creation timestamps.
func runSweeper(ctx context.Context, coordinator *broker.Coordinator, cfg sources.SpecStoreConfig, logger *slog.Logger) {
	maxAge := timeutil.ParseDurationOrDefault(cfg.TTL, 30*time.Minute)
	interval := timeutil.ParseDurationOrDefault(cfg.SweepInterval, 5*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := coordinator.Sweep(ctx, maxAge); removed > 0 {
				logger.Info("spec store swept", "removed", removed)
			}
		}
	}
}

func runStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func runHTTP(ctx context.Context, envCfg config.Config, fileCfg *sources.Config, server *mcp.Server, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{
		Stateless: fileCfg.Server.HTTP.Stateless,
	})

	application, err := app.New(ctx, fileCfg.Server, handler, logger, envCfg.ShutdownTimeout)
	if err != nil {
		return err
	}

	return application.Run(ctx)
}
