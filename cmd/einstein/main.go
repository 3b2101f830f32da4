// Command einstein is the IntelliVue vital-signs gateway.
//
// It listens for monitor discovery beacons over UDP, associates with each
// monitor, polls numeric observations every few seconds, and POSTs them to
// subscribed webhooks. A small REST surface lists monitors and manages
// subscriptions.
//
// Usage:
//
//	einstein [flags]
//
// Configuration is read from the file named by -config (or the
// EINSTEIN_CONFIG environment variable); every field has a default suitable
// for a stock IntelliVue LAN setup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openvitals/einstein/pkg/einstein/app"
	"github.com/openvitals/einstein/pkg/einstein/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "einstein: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Flags ────────────────────────────────────────────────────────────
	var (
		cfgPath  string
		logLevel string
		logFmt   string
	)
	flag.StringVar(&cfgPath, "config", "", "Path to the YAML config file (default: $EINSTEIN_CONFIG)")
	flag.StringVar(&logLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&logFmt, "log.fmt", "text", "Log format: json, text")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────────
	logger, err := buildLogger(logLevel, logFmt)
	if err != nil {
		return err
	}

	// ── Config ───────────────────────────────────────────────────────────
	cfg, err := config.Load(config.PathFromEnv(cfgPath), logger)
	if err != nil {
		return err
	}

	// ── Run ──────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway := app.New(cfg, logger)
	if err := gateway.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	logger.Info("einstein: running — press Ctrl-C to stop")
	<-ctx.Done()
	logger.Info("einstein: received shutdown signal")

	gateway.Stop()
	return nil
}

func buildLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q (expected json|text)", format)
	}
	return slog.New(handler), nil
}
