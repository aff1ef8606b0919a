package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/journal"
	"github.com/giantswarm/mcp-redmine/internal/logging"
	"github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/tools/output"
)

// RedmineClient is the subset of *redmine.Client the tools depend on.
type RedmineClient interface {
	Do(ctx context.Context, req redmine.Request) redmine.Envelope
	Upload(ctx context.Context, filePath, description string) redmine.Envelope
	Download(ctx context.Context, attachmentID int64, savePath, filename string) redmine.Envelope
	BaseURL() string
}

// Logger is the leveled logger used by the server and its tools.
type Logger = logging.Logger

// ServerContext encapsulates all dependencies needed by the MCP server
// and provides a clean abstraction for dependency injection and lifecycle management.
type ServerContext struct {
	// Core dependencies
	redmineClient RedmineClient
	catalog       *redmine.PathCatalog
	processor     *output.Processor
	logger        Logger
	slogger       *slog.Logger
	config        *Config

	instrumentationProvider *instrumentation.Provider

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	// Lifecycle management
	mu       sync.RWMutex
	shutdown bool
	inFlight atomic.Int64
}

// NewServerContext creates a new ServerContext with default values.
// Use the provided functional options to customize the context.
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:     serverCtx,
		cancel:  cancel,
		config:  NewDefaultConfig(),
		slogger: slog.Default(),
		catalog: &redmine.PathCatalog{},
	}

	for _, opt := range opts {
		if err := opt(sc); err != nil {
			cancel()
			return nil, err
		}
	}

	if sc.logger == nil {
		sc.logger = logging.NewSlogAdapter(sc.slogger)
	}
	if sc.processor == nil {
		metrics := sc.instrumentationProvider.Metrics()
		sc.processor = output.NewProcessor(
			output.WithLogger(sc.slogger),
			output.WithRecorder(metrics),
			output.WithJournalProcessor(journal.NewProcessor(
				journal.WithLogger(sc.slogger),
				journal.WithRecorder(metrics),
			)),
		)
	}

	if err := sc.validate(); err != nil {
		cancel()
		return nil, err
	}

	return sc, nil
}

// Context returns the server context for cancellation and deadlines.
func (sc *ServerContext) Context() context.Context {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ctx
}

// RedmineClient returns the Redmine client.
func (sc *ServerContext) RedmineClient() RedmineClient {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.redmineClient
}

// PathCatalog returns the OpenAPI path catalog. It is never nil.
func (sc *ServerContext) PathCatalog() *redmine.PathCatalog {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.catalog
}

// ResponseProcessor returns the response filter.
func (sc *ServerContext) ResponseProcessor() *output.Processor {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.processor
}

// Logger returns the logger interface.
func (sc *ServerContext) Logger() Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// SlogLogger returns the structured logger behind Logger.
func (sc *ServerContext) SlogLogger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.slogger
}

// Config returns the server configuration.
func (sc *ServerContext) Config() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// InstrumentationProvider returns the instrumentation provider, which may be nil.
func (sc *ServerContext) InstrumentationProvider() *instrumentation.Provider {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.instrumentationProvider
}

// BeginRequest marks a tool call as in flight. Call the returned function
// when it completes.
func (sc *ServerContext) BeginRequest() (done func()) {
	sc.inFlight.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { sc.inFlight.Add(-1) })
	}
}

// InFlightRequests returns the number of tool calls currently running.
func (sc *ServerContext) InFlightRequests() int64 {
	return sc.inFlight.Load()
}

// Shutdown gracefully shuts down the server context.
// This cancels the context and releases any resources.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.logger.Info("Shutting down server context", "in_flight", sc.inFlight.Load())

	if sc.cancel != nil {
		sc.cancel()
	}
	sc.shutdown = true

	sc.logger.Info("Server context shutdown complete")
	return nil
}

// IsShutdown returns true if the server context has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// validate ensures all required dependencies are set.
func (sc *ServerContext) validate() error {
	if sc.redmineClient == nil {
		return ErrMissingRedmineClient
	}
	if sc.config == nil {
		return ErrMissingConfig
	}
	return nil
}

// Config holds the server configuration.
type Config struct {
	ServerName string `json:"serverName"`
	Version    string `json:"version"`

	// RequestInstructions is appended to the redmine_request tool description.
	RequestInstructions string `json:"requestInstructions,omitempty"`

	// ReadOnly rejects tool calls that would change data in Redmine.
	ReadOnly bool `json:"readOnly"`

	DebugMode bool `json:"debugMode"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ServerName: "mcp-redmine",
		Version:    "dev",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
