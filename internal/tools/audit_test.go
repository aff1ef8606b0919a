package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/tools/testdata"
)

func TestWrapWithAuditLogging_LogsInvocation(t *testing.T) {
	provider, buf := createTestProvider(t)
	sc := createTestServerContext(t, provider)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}

	wrapped := WrapWithAuditLogging("redmine_request", handler, sc)

	result, err := wrapped(context.Background(), createTestRequest(map[string]any{
		"path":       "/issues/42.json?include=journals",
		"method":     "put",
		"mcp_filter": "minimal",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	record := lastAuditRecord(t, buf)
	assert.Equal(t, "tool_invocation", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "redmine_request", record["tool"])
	assert.Equal(t, "put", record["method"])
	assert.Equal(t, "/issues/{id}.json", record["path"])
	assert.Equal(t, "issues", record["resource"])
	assert.Equal(t, "minimal", record["preset"])
	assert.Equal(t, true, record["success"])
	assert.NotEmpty(t, record["invocation_id"])
}

func TestWrapWithAuditLogging_HandlesGoError(t *testing.T) {
	provider, buf := createTestProvider(t)
	sc := createTestServerContext(t, provider)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return nil, errors.New("boom")
	}

	_, err := WrapWithAuditLogging("redmine_paths_list", handler, sc)(context.Background(), createTestRequest(nil))
	require.Error(t, err)

	record := lastAuditRecord(t, buf)
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, false, record["success"])
	assert.Equal(t, "boom", record["error"])
	assert.NotContains(t, record, "path")
}

func TestWrapWithAuditLogging_HandlesMCPToolError(t *testing.T) {
	provider, buf := createTestProvider(t)
	sc := createTestServerContext(t, provider)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("file_path is required"), nil
	}

	result, err := WrapWithAuditLogging("redmine_upload", handler, sc)(context.Background(), createTestRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	record := lastAuditRecord(t, buf)
	assert.Equal(t, false, record["success"])
	assert.Equal(t, "file_path is required", record["error"])
}

func TestWrapWithAuditLogging_CountsInFlight(t *testing.T) {
	sc := createTestServerContextNoInstrumentation(t)

	var during int64
	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		during = sc.InFlightRequests()
		return mcp.NewToolResultText("ok"), nil
	}

	_, err := WrapWithAuditLogging("redmine_paths_list", handler, sc)(context.Background(), createTestRequest(nil))
	require.NoError(t, err)

	assert.Equal(t, int64(1), during)
	assert.Equal(t, int64(0), sc.InFlightRequests())
}

func TestWrapWithAuditLogging_NoProvider(t *testing.T) {
	sc := createTestServerContextNoInstrumentation(t)

	called := false
	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	}

	result, err := WrapWithAuditLogging("redmine_paths_list", handler, sc)(context.Background(), createTestRequest(nil))
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestWrapWithAuditLogging_RecordsToolMetric(t *testing.T) {
	provider, _ := createTestProvider(t)
	sc := createTestServerContext(t, provider)

	handler := func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok"), nil
	}
	wrapped := WrapWithAuditLogging("redmine_paths_list", handler, sc)
	for i := 0; i < 2; i++ {
		_, err := wrapped(context.Background(), createTestRequest(nil))
		require.NoError(t, err)
	}

	families, err := provider.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var value float64
	for _, mf := range families {
		if mf.GetName() != "tool_invocations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "tool" && lp.GetValue() == "redmine_paths_list" {
					value = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), value)
}

func TestAuditTarget(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		wantMethod string
		wantPath   string
	}{
		{name: "request defaults to GET", args: map[string]any{"path": "/projects.json"}, wantMethod: "GET", wantPath: "/projects.json"},
		{name: "request with method", args: map[string]any{"path": "issues.json", "method": "post"}, wantMethod: "post", wantPath: "issues.json"},
		{name: "upload", args: map[string]any{"file_path": "/tmp/a.png"}, wantMethod: "POST", wantPath: "/uploads.json"},
		{name: "download", args: map[string]any{"attachment_id": float64(7), "save_path": "/tmp/"}, wantMethod: "GET", wantPath: "/attachments/download/7"},
		{name: "journal review", args: map[string]any{"issue_id": "42"}, wantMethod: "GET", wantPath: "/issues/42.json"},
		{name: "bad attachment id", args: map[string]any{"attachment_id": "x"}},
		{name: "no target", args: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, path := auditTarget(tt.args)
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

// createTestProvider returns an enabled provider whose audit log is captured.
func createTestProvider(t *testing.T) (*instrumentation.Provider, *bytes.Buffer) {
	t.Helper()
	config := instrumentation.Config{
		Enabled:         true,
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	}
	provider, err := instrumentation.NewProvider(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	buf := &bytes.Buffer{}
	provider.SetAuditLogger(slog.New(slog.NewJSONHandler(buf, nil)))
	return provider, buf
}

func createTestServerContext(t *testing.T, provider *instrumentation.Provider) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(
		context.Background(),
		server.WithRedmineClient(&testdata.MockRedmineClient{}),
		server.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		server.WithInstrumentationProvider(provider),
	)
	require.NoError(t, err)
	return sc
}

func createTestServerContextNoInstrumentation(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(
		context.Background(),
		server.WithRedmineClient(&testdata.MockRedmineClient{}),
		server.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	require.NoError(t, err)
	return sc
}

func createTestRequest(args map[string]any) mcp.CallToolRequest {
	if args == nil {
		args = map[string]any{}
	}
	request := mcp.CallToolRequest{}
	request.Params.Name = "test_tool"
	request.Params.Arguments = args
	return request
}

func lastAuditRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines[len(lines)-1], "no audit record written")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &record))
	return record
}
