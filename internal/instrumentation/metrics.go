package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrResource = "resource"
	attrOutcome  = "outcome"
	attrDecision = "decision"
	attrTool     = "tool"
)

var durationBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0}

// Metrics provides methods for recording observability metrics.
// A zero Metrics (or a nil pointer) is valid and records nothing.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	redmineRequestsTotal   metric.Int64Counter
	redmineRequestDuration metric.Float64Histogram

	filterOperationsTotal metric.Int64Counter
	journalEntriesTotal   metric.Int64Counter
	toolInvocationsTotal  metric.Int64Counter

	// detailedLabels adds the normalised Redmine resource to request metrics.
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.redmineRequestsTotal, err = meter.Int64Counter(
		"redmine_requests_total",
		metric.WithDescription("Total number of requests sent to the Redmine API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redmine_requests_total counter: %w", err)
	}

	m.redmineRequestDuration, err = meter.Float64Histogram(
		"redmine_request_duration_seconds",
		metric.WithDescription("Redmine API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redmine_request_duration_seconds histogram: %w", err)
	}

	m.filterOperationsTotal, err = meter.Int64Counter(
		"response_filter_operations_total",
		metric.WithDescription("Total number of response filter runs by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create response_filter_operations_total counter: %w", err)
	}

	m.journalEntriesTotal, err = meter.Int64Counter(
		"journal_entries_total",
		metric.WithDescription("Total number of journal entries classified by decision"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal_entries_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRedmineRequest records one call to the Redmine API.
//
// The status label is the HTTP status code, or "0" for transport failures.
// resource should already be normalised with ResourceFromPath; it is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordRedmineRequest(ctx context.Context, method, resource string, statusCode int, duration time.Duration) {
	if m == nil || m.redmineRequestsTotal == nil || m.redmineRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrResource, resource))
	}

	m.redmineRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.redmineRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordFilterOperation counts a response filter run.
func (m *Metrics) RecordFilterOperation(ctx context.Context, outcome string) {
	if m == nil || m.filterOperationsTotal == nil {
		return
	}
	m.filterOperationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// RecordJournalDecision counts one classified journal entry.
func (m *Metrics) RecordJournalDecision(ctx context.Context, decision string) {
	if m == nil || m.journalEntriesTotal == nil {
		return
	}
	m.journalEntriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrDecision, decision)))
}

// RecordToolInvocation counts an MCP tool call by tool name and status.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	))
}
