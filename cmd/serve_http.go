package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/server/middleware"
)

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, provider *instrumentation.Provider, sc *server.ServerContext) error {
	mux := http.NewServeMux()

	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(config.HTTPEndpoint),
	)
	mux.Handle(config.HTTPEndpoint, mcpHandler)

	// Metrics are served on a separate metrics server, see startMetricsServer
	server.NewHealthChecker(sc).RegisterHealthEndpoints(mux)

	handler, err := buildHTTPHandler(mux, config.HTTP, provider)
	if err != nil {
		return err
	}

	slog.Info("streamable HTTP server starting",
		"addr", config.HTTPAddr,
		"endpoint", config.HTTPEndpoint,
		"health_endpoints", []string{"/healthz", "/readyz", "/healthz/detailed"})

	return serveHTTP(ctx, "HTTP", config, handler, provider, nil)
}

// buildHTTPHandler wraps the transport mux with the HTTP middleware chain.
// From the outside in: request metrics, security headers, CORS, body limit.
func buildHTTPHandler(mux http.Handler, config HTTPServeConfig, provider *instrumentation.Provider) (http.Handler, error) {
	origins, err := middleware.ValidateAllowedOrigins(config.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed origins: %w", err)
	}

	handler := middleware.MaxRequestSize(config.MaxRequestSize)(mux)
	if len(origins) > 0 {
		handler = middleware.CORS(origins)(handler)
	}
	handler = middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
		EnableHSTS: config.EnableHSTS,
	})(handler)
	handler = middleware.HTTPMetrics(provider)(handler)
	return handler, nil
}

// serveHTTP runs handler on config.HTTPAddr next to the optional metrics
// server until ctx is cancelled or a listener fails. onShutdown runs before
// the HTTP server is shut down.
func serveHTTP(ctx context.Context, name string, config ServeConfig, handler http.Handler, provider *instrumentation.Provider, onShutdown func(context.Context) error) error {
	// Create HTTP server with security timeouts
	httpServer := &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    config.Metrics.Addr,
			Enabled:                 config.Metrics.Enabled,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	} else if config.Metrics.Enabled {
		slog.Warn("metrics server requested but instrumentation is disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server stopped with error: %w", name, err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			slog.Info("metrics server started", "addr", metricsServer.Addr(), "endpoint", "/metrics")
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server stopped with error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping server", "server", name)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		// Shutdown metrics server first
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error shutting down metrics server", "error", err)
			}
		}
		if onShutdown != nil {
			if err := onShutdown(shutdownCtx); err != nil {
				slog.Error("error closing transport sessions", "server", name, "error", err)
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down %s server: %w", name, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server gracefully stopped", "server", name)
	return nil
}
