package server

import (
	"errors"
	"log/slog"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/logging"
	"github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/tools/output"
)

// Option is a functional option for configuring ServerContext.
type Option func(*ServerContext) error

// WithRedmineClient sets the Redmine client for the ServerContext.
func WithRedmineClient(client RedmineClient) Option {
	return func(sc *ServerContext) error {
		if client == nil {
			return ErrMissingRedmineClient
		}
		sc.redmineClient = client
		return nil
	}
}

// WithPathCatalog sets the OpenAPI path catalog. A nil catalog keeps the empty default.
func WithPathCatalog(catalog *redmine.PathCatalog) Option {
	return func(sc *ServerContext) error {
		if catalog != nil {
			sc.catalog = catalog
		}
		return nil
	}
}

// WithResponseProcessor overrides the response filter.
func WithResponseProcessor(p *output.Processor) Option {
	return func(sc *ServerContext) error {
		sc.processor = p
		return nil
	}
}

// WithLogger sets the structured logger for the ServerContext.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) error {
		if logger == nil {
			return ErrMissingLogger
		}
		sc.slogger = logger
		sc.logger = logging.NewSlogAdapter(logger)
		return nil
	}
}

// WithConfig sets the configuration for the ServerContext.
func WithConfig(config *Config) Option {
	return func(sc *ServerContext) error {
		if config == nil {
			return ErrMissingConfig
		}
		sc.config = config.Clone()
		return nil
	}
}

// WithServerName sets the server name in the configuration.
func WithServerName(name string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ServerName = name
		return nil
	}
}

// WithRequestInstructions sets the extra text shown in the redmine_request description.
func WithRequestInstructions(instructions string) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.RequestInstructions = instructions
		return nil
	}
}

// WithReadOnly enables or disables read-only mode.
func WithReadOnly(enabled bool) Option {
	return func(sc *ServerContext) error {
		if sc.config == nil {
			sc.config = NewDefaultConfig()
		}
		sc.config.ReadOnly = enabled
		return nil
	}
}

// WithInstrumentationProvider sets the OpenTelemetry instrumentation provider.
func WithInstrumentationProvider(provider *instrumentation.Provider) Option {
	return func(sc *ServerContext) error {
		sc.instrumentationProvider = provider
		return nil
	}
}

// Error definitions for ServerContext validation and operations.
var (
	ErrMissingRedmineClient = errors.New("redmine client is required")
	ErrMissingLogger        = errors.New("logger is required")
	ErrMissingConfig        = errors.New("configuration is required")
	ErrServerShutdown       = errors.New("server context has been shutdown")
)
