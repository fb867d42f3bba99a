package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	server "kosmos-worm/server"
	"kosmos-worm/server/internal/config"
	servernet "kosmos-worm/server/internal/net"
	"kosmos-worm/server/logging"
	loggingSinks "kosmos-worm/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Options carries the process-level collaborators Run needs.
type Options struct {
	Logger *log.Logger
	// Console receives the console event sink. Defaults to os.Stdout.
	Console io.Writer
	// Listener overrides the TCP listener opened on cfg.Addr.
	Listener net.Listener
	// Ready is called with the bound address once the server accepts
	// connections.
	Ready func(addr string)
}

// Run wires the logging router, the hub and the HTTP server, then blocks
// until ctx is cancelled or one of them fails.
func Run(ctx context.Context, cfg config.Config, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	namedSinks, err := loggingSinks.FromConfig(cfg.Logging, console)
	if err != nil {
		return fmt.Errorf("failed to construct log sinks: %w", err)
	}
	router, err := logging.NewRouter(logging.ClockFunc(time.Now), cfg.Logging, namedSinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.DefaultHubConfig()
	hubCfg.World = cfg.World
	hubCfg.Logger = logger
	hubCfg.DebugTelemetry = cfg.Observability.DebugTelemetry

	hub, err := server.NewHubWithConfig(hubCfg, router)
	if err != nil {
		return fmt.Errorf("failed to construct hub: %w", err)
	}

	clientDir, err := server.ResolveClientAssetsDir(cfg.ClientDir)
	if err != nil {
		logger.Printf("static client disabled: %v", err)
		clientDir = ""
	}

	if cfg.Observability.Enabled() {
		logger.Printf("diagnostics enabled: pprof=%t telemetry=%t", cfg.Observability.EnablePprofTrace, cfg.Observability.DebugTelemetry)
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     clientDir,
		Logger:        logger,
		Observability: cfg.Observability,
	})

	listener := opts.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Printf("tick loop running at %d Hz (%d bots, collision policy %s)", hub.TickRate(), cfg.World.BotCount, cfg.World.CollisionPolicy)
		err := hub.Run(gctx)
		hub.Shutdown()
		return err
	})

	g.Go(func() error {
		logger.Printf("server listening on %s", listener.Addr())
		if opts.Ready != nil {
			opts.Ready(listener.Addr().String())
		}
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
