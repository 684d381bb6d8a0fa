// Command citydesk-server serves the /cidades and /comercios REST resources.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"citydesk/internal/adapters/cidades"
	"citydesk/internal/config"
	"citydesk/internal/core"
)

const readHeaderTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "citydesk-server:", err)
		stop()
		exitFunc(1)
	}
}

// app bundles the wired server and the resources it must release.
type app struct {
	server  *http.Server
	logger  *slog.Logger
	closers []io.Closer
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// newApp wires storage, the service and the router. Spans go to traceOut
// when cfg.Log.Trace is set.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, traceOut io.Writer) (*app, error) {
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	metrics := core.NewMetricsCollector(cfg.Metrics)
	opts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics.ForComponent("service")),
		core.WithAuditRecorder(auditLogger{logger: logger}),
	}
	if cfg.Log.Trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceOut)))
	}
	svc := core.NewService(store, opts...)
	handler := cidades.NewHandler(svc, logger)

	a := &app{
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           cidades.NewRouter(handler, metrics),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
	if closer, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// run serves until ctx is cancelled. ready, when set, receives the bound
// address once the listener is open.
func run(ctx context.Context, args []string, stderr io.Writer, ready chan<- string) error {
	fs := flag.NewFlagSet("citydesk-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	addr := fs.String("addr", "", "listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	out := &lockedWriter{w: stderr}
	logger := cfg.Log.NewLogger(out)

	a, err := newApp(ctx, cfg, logger, out)
	if err != nil {
		return err
	}
	defer a.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	logger.Info("citydesk server listening", "addr", ln.Addr().String(), "storage", cfg.Storage.Driver)
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// lockedWriter serializes writes from the log handler and the span encoder.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// auditLogger writes mutation audit entries to the structured log.
type auditLogger struct {
	logger *slog.Logger
}

func (a auditLogger) Record(_ context.Context, entry core.AuditEntry) {
	a.logger.Info("audit",
		"operation", entry.Operation,
		"entity", entry.Entity,
		"action", entry.Action,
		"entity_id", entry.EntityID,
		"status", entry.Status,
		"error", entry.Error,
		"duration", entry.Duration,
	)
}
