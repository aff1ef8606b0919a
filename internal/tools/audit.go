// Package tools provides shared utilities and types for MCP tool implementations.
package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/server"
)

// ToolHandler is the signature for MCP tool handler functions that take ServerContext.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

// WrapWithAuditLogging wraps a tool handler with a tool span, the in-flight
// counter and audit logging. The wrapper captures:
//   - Tool invocation timing
//   - The Redmine method and path derived from the arguments
//   - The response filter preset, when one is named
//   - Success/error status from the handler result
//   - OpenTelemetry trace context for correlation
//
// Without an instrumentation provider the span and counter still apply but
// nothing is logged.
func WrapWithAuditLogging(
	toolName string,
	handler ToolHandler,
	sc *server.ServerContext,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		done := sc.BeginRequest()
		defer done()

		args := request.GetArguments()
		method, path := auditTarget(args)
		preset := FilterPresetName(args)

		attrs := instrumentation.NewSpanAttributeBuilder().WithPreset(preset)
		if path != "" {
			attrs.WithRequest(method, path)
		}
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs.Build()...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithPreset(preset)
		if path != "" {
			invocation.WithRequest(method, path)
		}

		result, err := handler(ctx, request, sc)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			// MCP tool errors are returned in the result, not as Go errors
			invocation.Complete(false, nil)
			if len(result.Content) > 0 {
				if textContent, ok := result.Content[0].(mcp.TextContent); ok {
					invocation.Error = textContent.Text
				}
			}
			instrumentation.SetSpanError(span, errors.New(invocation.Error))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		sc.InstrumentationProvider().AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

// auditTarget derives the Redmine method and path a tool call acts on from
// its arguments. Tools that do not touch Redmine yield empty strings.
func auditTarget(args map[string]any) (method, path string) {
	if p := StringArg(args, "path"); p != "" {
		method = StringArg(args, "method")
		if method == "" {
			method = http.MethodGet
		}
		return method, p
	}
	if StringArg(args, "file_path") != "" {
		return http.MethodPost, "/uploads.json"
	}
	if id, ok, err := IntegerArg(args, "attachment_id"); ok && err == nil {
		return http.MethodGet, fmt.Sprintf("/attachments/download/%d", id)
	}
	if id, ok, err := IntegerArg(args, "issue_id"); ok && err == nil {
		return http.MethodGet, fmt.Sprintf("/issues/%d.json", id)
	}
	return "", ""
}
