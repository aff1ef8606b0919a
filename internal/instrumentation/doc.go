// Package instrumentation provides OpenTelemetry metrics, tracing helpers and
// the tool audit record for the mcp-redmine server.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total: HTTP requests by method, path and status
//   - http_request_duration_seconds: HTTP request durations
//
// Redmine API:
//   - redmine_requests_total: calls to Redmine by method, status and (optionally) resource
//   - redmine_request_duration_seconds: Redmine call durations
//
// Response filtering:
//   - response_filter_operations_total: filter runs by outcome
//     (pass_through, invalid_config, filtered, fallback)
//   - journal_entries_total: journal entries by decision (kept, dropped, error)
//
// Tools:
//   - tool_invocations_total: MCP tool calls by tool and status
//
// Redmine paths carry numeric ids, so request metrics only ever use the
// top-level resource from ResourceFromPath. Set METRICS_DETAILED_LABELS=false
// to drop even that.
//
// # Tracing
//
// Spans are created for MCP tool invocations (StartToolSpan), Redmine API calls
// (StartRedmineSpan) and response filtering (StartSpan).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: enable metrics and tracing (default: false)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_EXPORTER_OTLP_INSECURE: use plain HTTP for OTLP
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: mcp-redmine)
//
// The stdout exporters write to stderr, since stdout carries the MCP protocol
// in stdio mode.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordRedmineRequest(ctx, "GET", "issues", 200, time.Since(start))
package instrumentation
