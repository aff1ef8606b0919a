package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/logging"
	"github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/server/middleware"
	redminetools "github.com/giantswarm/mcp-redmine/internal/tools/redmine"
)

// Transport type constants for the MCP server.
const (
	transportStdio          = "stdio"
	transportSSE            = "sse"
	transportStreamableHTTP = "streamable-http"
)

// dotEnvFile is loaded from the working directory before flags are resolved.
const dotEnvFile = ".env"

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP Redmine server",
		Long: `Start the MCP Redmine server to provide tools for working with a
Redmine instance via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Every flag can also be set through the environment (for example REDMINE_URL,
REDMINE_API_KEY, REDMINE_REQUEST_INSTRUCTIONS). A .env file in the working
directory is loaded first; variables that are already set are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv(dotEnvFile); err != nil {
				return err
			}

			v, err := newServeViper(cmd.Flags())
			if err != nil {
				return err
			}

			config := loadServeConfig(v)
			if err := config.Validate(); err != nil {
				return err
			}
			return runServe(config)
		},
	}

	cmd.Flags().String("transport", transportStdio, "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().String("sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().String("message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().String("http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")
	cmd.Flags().Bool("debug", false, "Enable debug logging (default: false)")
	cmd.Flags().Bool("read-only", false, "Reject tool calls that would modify Redmine data (default: false)")

	cmd.Flags().String("redmine-url", "", "Redmine base URL, e.g. https://redmine.example.com/ (env REDMINE_URL)")
	cmd.Flags().String("redmine-api-key", "", "Redmine API key (env REDMINE_API_KEY)")
	cmd.Flags().String("request-instructions", "", "File whose content is appended to the redmine_request tool description (env REDMINE_REQUEST_INSTRUCTIONS)")
	cmd.Flags().String("openapi-spec", "", "Redmine OpenAPI YAML document used by the paths tools (env REDMINE_OPENAPI_SPEC)")
	cmd.Flags().Float64("qps-limit", 10, "QPS limit for Redmine API calls, 0 disables rate limiting (default: 10)")
	cmd.Flags().Int("burst-limit", 20, "Burst limit for Redmine API calls (default: 20)")
	cmd.Flags().Duration("request-timeout", redmine.DefaultTimeout, "Timeout of a single Redmine API call (default: 60s)")
	cmd.Flags().Duration("retry-max-elapsed", 0, "Retry transient Redmine failures for up to this long, 0 disables retries (default: 0s)")

	cmd.Flags().Bool("enable-metrics-server", false, "Serve Prometheus metrics on a dedicated address (requires INSTRUMENTATION_ENABLED=true)")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address (default: :9090)")
	cmd.Flags().String("allowed-origins", "", "Comma-separated CORS origins for HTTP transports (env ALLOWED_ORIGINS)")
	cmd.Flags().Bool("enable-hsts", false, "Send the Strict-Transport-Security header (for TLS-terminating proxies)")
	cmd.Flags().Int64("max-request-size", middleware.DefaultMaxRequestSize, "Maximum HTTP request body size in bytes, 0 disables the limit")

	return cmd
}

// runServe contains the main server logic with support for multiple transports
func runServe(config ServeConfig) error {
	// Logs go to stderr so they never interfere with the stdio transport.
	logger := logging.NewLogger(config.DebugMode)
	slog.SetDefault(logger)

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry instrumentation provider
	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	instrumentationProvider, err := instrumentation.NewProvider(shutdownCtx, instrumentationConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := instrumentationProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()
	if instrumentationProvider.Enabled() {
		logger.Info("instrumentation enabled",
			slog.String("metrics_exporter", instrumentationConfig.MetricsExporter),
			slog.String("tracing_exporter", instrumentationConfig.TracingExporter))
	}

	instructions, err := readRequestInstructions(config.Redmine.RequestInstructionsFile)
	if err != nil {
		return err
	}

	catalog := &redmine.PathCatalog{}
	if config.Redmine.OpenAPISpec != "" {
		catalog, err = redmine.LoadPathCatalog(config.Redmine.OpenAPISpec)
		if err != nil {
			return err
		}
		logger.Info("OpenAPI path catalog loaded", slog.Int("paths", catalog.Len()))
	}

	client, err := redmine.NewClient(redmine.ClientConfig{
		BaseURL:         config.Redmine.URL,
		APIKey:          config.Redmine.APIKey,
		Timeout:         config.Redmine.RequestTimeout,
		QPS:             config.Redmine.QPSLimit,
		Burst:           config.Redmine.BurstLimit,
		RetryMaxElapsed: config.Redmine.RetryMaxElapsed,
		Recorder:        instrumentationProvider.Metrics(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create Redmine client: %w", err)
	}

	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithRedmineClient(client),
		server.WithPathCatalog(catalog),
		server.WithLogger(logger),
		server.WithConfig(&server.Config{
			ServerName:          "mcp-redmine",
			Version:             rootCmd.Version,
			RequestInstructions: instructions,
			ReadOnly:            config.ReadOnly,
			DebugMode:           config.DebugMode,
		}),
		server.WithInstrumentationProvider(instrumentationProvider),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("mcp-redmine", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := redminetools.RegisterRedmineTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register redmine tools: %w", err)
	}

	logger.Info("starting MCP Redmine server",
		slog.String("transport", config.Transport),
		logging.Host(config.Redmine.URL),
		slog.Bool("read_only", config.ReadOnly))

	switch config.Transport {
	case transportStdio:
		return runStdioServer(shutdownCtx, mcpSrv)
	case transportSSE:
		return runSSEServer(shutdownCtx, mcpSrv, config, instrumentationProvider, serverContext)
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, config, instrumentationProvider, serverContext)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", config.Transport)
	}
}
