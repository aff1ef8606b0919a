package cmd

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/server"
)

// runSSEServer runs the server with SSE transport
func runSSEServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, config ServeConfig, provider *instrumentation.Provider, sc *server.ServerContext) error {
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(config.SSEEndpoint),
		mcpserver.WithMessageEndpoint(config.MessageEndpoint),
	)

	// The SSE server routes both endpoints itself.
	mux := http.NewServeMux()
	mux.Handle(config.SSEEndpoint, sseServer)
	mux.Handle(config.MessageEndpoint, sseServer)
	server.NewHealthChecker(sc).RegisterHealthEndpoints(mux)

	handler, err := buildHTTPHandler(mux, config.HTTP, provider)
	if err != nil {
		return err
	}

	slog.Debug("SSE server configuration",
		"addr", config.HTTPAddr,
		"sse_endpoint", config.SSEEndpoint,
		"message_endpoint", config.MessageEndpoint)
	slog.Info("SSE server starting",
		"addr", config.HTTPAddr,
		"sse_endpoint", config.SSEEndpoint,
		"message_endpoint", config.MessageEndpoint)

	return serveHTTP(ctx, "SSE", config, handler, provider, func(ctx context.Context) error {
		return sseServer.Shutdown(ctx)
	})
}
