package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/giantswarm/mcp-redmine/internal/server/middleware"
)

// ServeConfig holds all configuration for the serve command.
type ServeConfig struct {
	// Transport settings
	Transport string
	HTTPAddr  string

	// Endpoint paths
	SSEEndpoint     string
	MessageEndpoint string
	HTTPEndpoint    string

	DebugMode bool
	ReadOnly  bool

	Redmine RedmineServeConfig
	Metrics MetricsServeConfig
	HTTP    HTTPServeConfig
}

// RedmineServeConfig holds the Redmine connection settings.
type RedmineServeConfig struct {
	URL    string
	APIKey string

	// RequestInstructionsFile is read at startup and appended to the
	// redmine_request tool description.
	RequestInstructionsFile string

	// OpenAPISpec is the OpenAPI YAML document backing the paths tools.
	OpenAPISpec string

	QPSLimit        float64
	BurstLimit      int
	RequestTimeout  time.Duration
	RetryMaxElapsed time.Duration
}

// MetricsServeConfig holds configuration for the dedicated metrics server.
type MetricsServeConfig struct {
	Enabled bool
	Addr    string
}

// HTTPServeConfig holds the middleware settings of the HTTP transports.
type HTTPServeConfig struct {
	// AllowedOrigins is a comma-separated list of CORS origins.
	AllowedOrigins string
	EnableHSTS     bool
	MaxRequestSize int64
}

// envBindings maps serve flags to the environment variables that back them.
// Flags set on the command line win over the environment.
var envBindings = map[string]string{
	"transport":             "MCP_TRANSPORT",
	"http-addr":             "MCP_HTTP_ADDR",
	"debug":                 "MCP_DEBUG",
	"read-only":             "REDMINE_READ_ONLY",
	"redmine-url":           "REDMINE_URL",
	"redmine-api-key":       "REDMINE_API_KEY",
	"request-instructions":  "REDMINE_REQUEST_INSTRUCTIONS",
	"openapi-spec":          "REDMINE_OPENAPI_SPEC",
	"qps-limit":             "REDMINE_QPS_LIMIT",
	"burst-limit":           "REDMINE_BURST_LIMIT",
	"request-timeout":       "REDMINE_REQUEST_TIMEOUT",
	"retry-max-elapsed":     "REDMINE_RETRY_MAX_ELAPSED",
	"enable-metrics-server": "METRICS_SERVER_ENABLED",
	"metrics-addr":          "METRICS_ADDR",
	"allowed-origins":       "ALLOWED_ORIGINS",
	"enable-hsts":           "ENABLE_HSTS",
	"max-request-size":      "MAX_REQUEST_SIZE",
}

// loadDotEnv loads a .env file into the process environment. Variables that
// are already set are kept. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// newServeViper binds the serve flags and their environment variables.
func newServeViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return v, nil
}

// loadServeConfig reads the resolved settings out of v.
func loadServeConfig(v *viper.Viper) ServeConfig {
	return ServeConfig{
		Transport:       v.GetString("transport"),
		HTTPAddr:        v.GetString("http-addr"),
		SSEEndpoint:     v.GetString("sse-endpoint"),
		MessageEndpoint: v.GetString("message-endpoint"),
		HTTPEndpoint:    v.GetString("http-endpoint"),
		DebugMode:       v.GetBool("debug"),
		ReadOnly:        v.GetBool("read-only"),
		Redmine: RedmineServeConfig{
			URL:                     v.GetString("redmine-url"),
			APIKey:                  v.GetString("redmine-api-key"),
			RequestInstructionsFile: v.GetString("request-instructions"),
			OpenAPISpec:             v.GetString("openapi-spec"),
			QPSLimit:                v.GetFloat64("qps-limit"),
			BurstLimit:              v.GetInt("burst-limit"),
			RequestTimeout:          v.GetDuration("request-timeout"),
			RetryMaxElapsed:         v.GetDuration("retry-max-elapsed"),
		},
		Metrics: MetricsServeConfig{
			Enabled: v.GetBool("enable-metrics-server"),
			Addr:    v.GetString("metrics-addr"),
		},
		HTTP: HTTPServeConfig{
			AllowedOrigins: v.GetString("allowed-origins"),
			EnableHSTS:     v.GetBool("enable-hsts"),
			MaxRequestSize: v.GetInt64("max-request-size"),
		},
	}
}

// Validate checks the configuration before anything is started.
func (c ServeConfig) Validate() error {
	switch c.Transport {
	case transportStdio, transportSSE, transportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", c.Transport)
	}

	if strings.TrimSpace(c.Redmine.URL) == "" {
		return errors.New("redmine URL is required (--redmine-url or REDMINE_URL)")
	}
	if err := validateRedmineURL(c.Redmine.URL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Redmine.APIKey) == "" {
		return errors.New("redmine API key is required (--redmine-api-key or REDMINE_API_KEY)")
	}

	if c.Redmine.QPSLimit < 0 {
		return fmt.Errorf("qps limit must not be negative (got %v)", c.Redmine.QPSLimit)
	}
	if c.Redmine.QPSLimit > 0 && c.Redmine.BurstLimit < 1 {
		return fmt.Errorf("burst limit must be at least 1 when rate limiting is enabled (got %d)", c.Redmine.BurstLimit)
	}
	if c.Redmine.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative (got %s)", c.Redmine.RequestTimeout)
	}
	if c.Redmine.RetryMaxElapsed < 0 {
		return fmt.Errorf("retry max elapsed must not be negative (got %s)", c.Redmine.RetryMaxElapsed)
	}

	if _, err := middleware.ValidateAllowedOrigins(c.HTTP.AllowedOrigins); err != nil {
		return fmt.Errorf("invalid allowed origins: %w", err)
	}

	return nil
}

// validateRedmineURL requires an absolute http(s) URL with a host.
func validateRedmineURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("redmine URL must be a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("redmine URL must use http or https (got: %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("redmine URL must have a host")
	}
	return nil
}

// readRequestInstructions returns the trimmed content of path, or "" when no
// file is configured.
func readRequestInstructions(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read request instructions: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
