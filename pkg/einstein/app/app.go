// Package app wires the gateway components together and manages their
// lifecycle.
//
// Data path:
//
//	UDP socket → session.Engine → dispatch.Dispatcher → subscriber webhooks
//
// Control path (parallel):
//
//	httpapi.Server ↔ registry.Registry ← session.Engine
//
// Both paths meet at the registry: the engine writes monitor records, the
// HTTP surface writes subscriptions, and the dispatcher snapshots
// subscriptions per poll reply.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/openvitals/einstein/pkg/einstein/capture"
	"github.com/openvitals/einstein/pkg/einstein/config"
	"github.com/openvitals/einstein/pkg/einstein/dispatch"
	"github.com/openvitals/einstein/pkg/einstein/httpapi"
	"github.com/openvitals/einstein/pkg/einstein/registry"
	"github.com/openvitals/einstein/pkg/einstein/session"
)

// App orchestrates the full gateway. Create one with New, start it with
// Start, and stop it with Stop.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	reg        *registry.Registry
	sink       *capture.Sink
	dispatcher *dispatch.Dispatcher
	engine     *session.Engine
	httpSrv    *http.Server
}

// New constructs an App. It does not bind anything — call Start for that.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &App{cfg: cfg, logger: logger}
}

// Start builds every component and binds both listeners. Bind failures are
// fatal; the optional packet dump failing to open is not.
func (a *App) Start(ctx context.Context) error {
	a.reg = registry.New()

	// ── 1. Optional packet capture ──────────────────────────────────────
	var rec session.PacketRecorder
	if a.cfg.DumpFile != "" {
		sink, err := capture.Open(a.cfg.DumpFile, a.logger)
		if err != nil {
			a.logger.Error("app: packet capture unavailable — continuing without it",
				"path", a.cfg.DumpFile, "error", err.Error())
		} else {
			a.sink = sink
			rec = sink
		}
	}

	// ── 2. Dispatcher ───────────────────────────────────────────────────
	a.dispatcher = dispatch.New(a.reg, dispatch.Config{
		Timeout: a.cfg.WebhookDeadline(),
		Logger:  a.logger,
	})

	// ── 3. Session engine ───────────────────────────────────────────────
	a.engine = session.New(a.reg, a.dispatcher, rec, session.Config{
		ListenAddr:    a.cfg.ListenAddr,
		DiscoveryPort: a.cfg.DiscoveryPort,
		ProtocolPort:  a.cfg.ProtocolPort,
		PollInterval:  a.cfg.PollEvery(),
		StaleAfter:    a.cfg.StaleWindow(),
		Logger:        a.logger,
	})
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("app: start session engine: %w", err)
	}

	// ── 4. HTTP control surface ─────────────────────────────────────────
	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		a.engine.Stop()
		return fmt.Errorf("app: bind http %s: %w", a.cfg.HTTPAddr, err)
	}
	a.httpSrv = &http.Server{
		Handler:           httpapi.New(a.reg, a.logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("app: http server stopped", "error", err.Error())
		}
	}()

	a.logger.Info("app: gateway running",
		"udp", a.cfg.ListenAddr,
		"http", a.cfg.HTTPAddr,
		"poll_interval", a.cfg.PollEvery(),
		"dump_file", a.cfg.DumpFile,
	)
	return nil
}

// Stop performs a graceful shutdown: release every association first so
// monitors stop streaming, then drain the HTTP surface, then close the
// capture file.
func (a *App) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
	if a.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("app: http shutdown", "error", err.Error())
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Warn("app: close capture file", "error", err.Error())
		}
	}
	a.logger.Info("app: gateway stopped")
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
