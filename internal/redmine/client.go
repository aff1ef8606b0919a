package redmine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/logging"
)

// Sentinel errors returned by NewClient and the file helpers.
var (
	ErrMissingURL       = errors.New("redmine URL is required")
	ErrMissingAPIKey    = errors.New("redmine API key is required")
	ErrPathNotAbsolute  = errors.New("path must be fully qualified")
	errRetryableStatus  = errors.New("retryable status")
	errInvalidBaseURL   = errors.New("redmine URL must be absolute http(s)")
	errEmptyRequestPath = errors.New("request path is empty")
	errForeignURL       = errors.New("request path must be relative to the redmine URL")
)

// Error kinds used in Envelope.Error.
const (
	KindHTTPStatus = "HTTPStatusError"
	KindConnect    = "ConnectError"
	KindTimeout    = "TimeoutException"
	KindRequest    = "RequestError"
	KindFile       = "FileError"
	KindValidation = "ValueError"
)

// Content types.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

const (
	// APIKeyHeader carries the Redmine API key.
	APIKeyHeader = "X-Redmine-API-Key"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// maxBodySize caps how much of a response is read into memory.
	maxBodySize = 256 << 20
)

// RequestRecorder receives one observation per Redmine HTTP exchange.
type RequestRecorder interface {
	RecordRedmineRequest(ctx context.Context, method, resource string, statusCode int, duration time.Duration)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the Redmine root, e.g. https://redmine.example.com/.
	BaseURL string

	// APIKey is sent in the X-Redmine-API-Key header.
	APIKey string

	// Timeout bounds each HTTP attempt (default 60s).
	Timeout time.Duration

	// QPS and Burst configure the client-side rate limiter. QPS <= 0 disables it.
	QPS   float64
	Burst int

	// RetryMaxElapsed enables retries of transient failures when > 0.
	RetryMaxElapsed time.Duration

	// HTTPClient overrides the HTTP client. Its Timeout is left untouched.
	HTTPClient *http.Client

	Recorder RequestRecorder
	Logger   *slog.Logger
}

// Request describes one call to the Redmine REST API.
type Request struct {
	// Path is relative to the base URL. A leading slash is ignored.
	Path string

	// Method defaults to GET.
	Method string

	// Data is sent as the JSON body.
	Data any

	// Params are added to the query string. Lists become repeated keys.
	Params map[string]any

	// ContentType defaults to application/json.
	ContentType string

	// Content is sent verbatim as the body when set. It wins over Data.
	Content []byte

	// RawResponse returns a successful body as []byte without decoding.
	RawResponse bool
}

// Client talks to one Redmine instance. It is safe for concurrent use.
type Client struct {
	baseURL         *url.URL
	apiKey          string
	httpClient      *http.Client
	limiter         *rate.Limiter
	retryMaxElapsed time.Duration
	recorder        RequestRecorder
	logger          *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingURL
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redmine URL: %w", err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %s", errInvalidBaseURL, logging.SanitizeHost(cfg.BaseURL))
	}
	// Relative resolution drops the last segment unless the base ends in "/".
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:         base,
		apiKey:          cfg.APIKey,
		httpClient:      httpClient,
		limiter:         newLimiter(cfg.QPS, cfg.Burst),
		retryMaxElapsed: cfg.RetryMaxElapsed,
		recorder:        cfg.Recorder,
		logger:          logger,
	}, nil
}

func newLimiter(qps float64, burst int) *rate.Limiter {
	if qps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}

// BaseURL returns the Redmine root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL joins path onto the base URL.
func (c *Client) ResolveURL(path string) (*url.URL, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, errEmptyRequestPath
	}
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid request path: %w", err)
	}
	// The API key must never be sent to another host.
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("%w: %s", errForeignURL, logging.SanitizeHost(path))
	}
	return c.baseURL.ResolveReference(ref), nil
}

// Do performs req and always returns an envelope; failures are reported in
// Envelope.Error rather than as a Go error.
func (c *Client) Do(ctx context.Context, req Request) Envelope {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := instrumentation.StartRedmineSpan(ctx, method, req.Path)
	defer span.End()

	target, err := c.ResolveURL(req.Path)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return Failure(KindValidation, err)
	}
	if err := mergeParams(target, req.Params); err != nil {
		instrumentation.SetSpanError(span, err)
		return Failure(KindValidation, err)
	}

	body, err := encodeBody(req)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return Failure(KindValidation, err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}

	var (
		env      Envelope
		attempts int
	)
	operation := func() error {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			env = transportFailure(err)
			return backoff.Permanent(err)
		}

		start := time.Now()
		env = c.send(ctx, method, target, contentType, body, req.RawResponse)
		if c.recorder != nil {
			c.recorder.RecordRedmineRequest(ctx, method, instrumentation.ResourceFromPath(req.Path), env.StatusCode, time.Since(start))
		}

		if retryable(env) {
			return errRetryableStatus
		}
		return nil
	}

	if c.retryMaxElapsed > 0 {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = c.retryMaxElapsed
		notify := func(err error, wait time.Duration) {
			c.logger.DebugContext(ctx, "retrying redmine request",
				logging.Method(method),
				logging.Path(req.Path),
				slog.Int("status_code", env.StatusCode),
				slog.Duration("wait", wait))
		}
		// The last envelope is reported either way.
		_ = backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
	} else {
		_ = operation()
	}

	span.SetAttributes(
		attribute.Int(instrumentation.SpanAttrStatusCode, env.StatusCode),
		attribute.Int(instrumentation.SpanAttrAttempts, attempts),
	)
	if env.Error != "" {
		instrumentation.SetSpanError(span, errors.New(env.Error))
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	return env
}

// Get is shorthand for a GET without parameters.
func (c *Client) Get(ctx context.Context, path string) Envelope {
	return c.Do(ctx, Request{Path: path, Method: http.MethodGet})
}

func (c *Client) send(ctx context.Context, method string, target *url.URL, contentType string, body []byte, raw bool) Envelope {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return Failure(KindRequest, err)
	}
	httpReq.Header.Set(APIKeyHeader, c.apiKey)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", ContentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		env := transportFailure(err)
		env.StatusCode = resp.StatusCode
		return env
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	env := Envelope{StatusCode: resp.StatusCode, Body: decodeBody(data, raw && success)}
	if !success {
		env.Error = fmt.Sprintf("%s: %d %s", KindHTTPStatus, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return env
}

// decodeBody returns nil for an empty body, the bytes as is when raw is set,
// the decoded value for JSON and the text otherwise.
func decodeBody(data []byte, raw bool) any {
	if len(data) == 0 {
		return nil
	}
	if raw {
		return data
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err == nil && !dec.More() {
		return normalizeNumbers(v)
	}
	return string(data)
}

// normalizeNumbers converts json.Number to int64 when integral and float64
// otherwise, so ids render without an exponent.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func encodeBody(req Request) ([]byte, error) {
	if req.Content != nil {
		return req.Content, nil
	}
	if req.Data == nil {
		return nil, nil
	}
	body, err := json.Marshal(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request data: %w", err)
	}
	return body, nil
}

// mergeParams adds params to the query of target, keeping any query
// already present in the path.
func mergeParams(target *url.URL, params map[string]any) error {
	if len(params) == 0 {
		return nil
	}

	query := target.Query()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
			continue
		case []any:
			for _, item := range v {
				s, err := paramString(item)
				if err != nil {
					return fmt.Errorf("param %q: %w", k, err)
				}
				query.Add(k, s)
			}
		case []string:
			for _, item := range v {
				query.Add(k, item)
			}
		default:
			s, err := paramString(v)
			if err != nil {
				return fmt.Errorf("param %q: %w", k, err)
			}
			query.Set(k, s)
		}
	}
	target.RawQuery = query.Encode()
	return nil
}

func paramString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

// transportFailure maps errors without an HTTP response to an envelope.
func transportFailure(err error) Envelope {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return Failure(KindTimeout, err)
	case isConnectError(err):
		return Failure(KindConnect, err)
	default:
		return Failure(KindRequest, err)
	}
}

func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// retryable reports whether an envelope describes a transient failure.
// Timeouts are not retried since the request may have been applied.
func retryable(env Envelope) bool {
	switch env.StatusCode {
	case 0:
		return strings.HasPrefix(env.Error, KindConnect+":")
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
