package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ToolInvocation is the audit record for one MCP tool call.
type ToolInvocation struct {
	ID        string
	Tool      string
	Path      string
	Method    string
	Preset    string
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string
	TraceID   string
	SpanID    string
}

// NewToolInvocation starts an audit record for tool.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithRequest records the Redmine method and path the tool acted on.
func (ti *ToolInvocation) WithRequest(method, path string) *ToolInvocation {
	ti.Method = method
	ti.Path = path
	return ti
}

// WithPreset records the response filter preset, if any.
func (ti *ToolInvocation) WithPreset(preset string) *ToolInvocation {
	ti.Preset = preset
	return ti
}

// WithSpanContext copies trace and span ids from ctx.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation finished.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// CompleteWithError marks the invocation as failed.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the slog attributes written for the invocation.
// Paths are logged normalised and without their query string.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Method != "" {
		attrs = append(attrs, slog.String("method", ti.Method))
	}
	if ti.Path != "" {
		attrs = append(attrs,
			slog.String("path", NormalizePath(ti.Path)),
			slog.String("resource", ResourceFromPath(ti.Path)),
		)
	}
	if ti.Preset != "" {
		attrs = append(attrs, slog.String("preset", ti.Preset))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

// AuditLogger writes tool invocation records.
type AuditLogger struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// WithMetrics makes the audit logger count invocations in tool_invocations_total.
func (a *AuditLogger) WithMetrics(m *Metrics) *AuditLogger {
	a.metrics = m
	return a
}

// LogToolInvocation logs the record at INFO, or WARN for failures.
func (a *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if a == nil || ti == nil {
		return
	}

	level := slog.LevelInfo
	if !ti.Success {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "tool_invocation", ti.LogAttrs()...)
	a.metrics.RecordToolInvocation(context.Background(), ti.Tool, ti.Status())
}
