package redmine

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	api "github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/tools/testdata"
)

const testOpenAPI = `
openapi: 3.0.0
paths:
  /issues.json:
    get:
      summary: List issues
  /projects.json:
    get:
      summary: List projects
`

var allTools = []string{
	ToolRequest,
	ToolPathsList,
	ToolPathsInfo,
	ToolUpload,
	ToolDownload,
	ToolFilterPresets,
	ToolJournalReview,
}

func TestRegisterRedmineTools(t *testing.T) {
	sc := newTestServerContext(t, &testdata.MockRedmineClient{},
		server.WithRequestInstructions("Always use project 'ops'."))

	mcpSrv := mcpserver.NewMCPServer("test", "0.0.1",
		mcpserver.WithToolCapabilities(true),
	)
	require.NoError(t, RegisterRedmineTools(mcpSrv, sc))

	registered := mcpSrv.ListTools()
	for _, name := range allTools {
		assert.Contains(t, registered, name, "tool %s should be registered", name)
	}

	request := registered[ToolRequest].Tool
	assert.Contains(t, request.Description, "Make a request to the Redmine API")
	assert.Contains(t, request.Description, "Always use project 'ops'.")
	assert.Contains(t, request.InputSchema.Properties, "mcp_filter")
	assert.Contains(t, request.InputSchema.Required, "path")
}

func TestRequestToolDescription(t *testing.T) {
	assert.Equal(t, requestDescription, requestToolDescription("  \n"))
	assert.Equal(t, requestDescription+"\n\nuse json", requestToolDescription("use json\n"))
}

func TestHandleRequest(t *testing.T) {
	issue := map[string]any{
		"issue": map[string]any{
			"id":            int64(1),
			"subject":       "Crash",
			"description":   "",
			"custom_fields": []any{map[string]any{"id": int64(3), "name": "Severity", "value": "high"}},
		},
	}

	tests := []struct {
		name       string
		args       map[string]any
		response   api.Envelope
		wantError  string
		wantCalled bool
		check      func(t *testing.T, req api.Request, out map[string]any)
	}{
		{
			name:       "defaults to GET",
			args:       map[string]any{"path": "/issues/1.json"},
			response:   api.Envelope{StatusCode: http.StatusOK, Body: issue},
			wantCalled: true,
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, "/issues/1.json", req.Path)
				assert.Nil(t, req.Data)
				assert.Equal(t, 200, out["status_code"])
				assert.NotContains(t, out, "mcp_filtered")
			},
		},
		{
			name: "passes data and params",
			args: map[string]any{
				"path":   "issues.json",
				"method": "post",
				"data":   map[string]any{"issue": map[string]any{"subject": "x"}},
				"params": `{"project_id": "ops"}`,
			},
			response:   api.Envelope{StatusCode: http.StatusCreated},
			wantCalled: true,
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, http.MethodPost, req.Method)
				assert.Equal(t, map[string]any{"issue": map[string]any{"subject": "x"}}, req.Data)
				assert.Equal(t, map[string]any{"project_id": "ops"}, req.Params)
			},
		},
		{
			name:       "applies preset",
			args:       map[string]any{"path": "/issues/1.json", "mcp_filter": "minimal"},
			response:   api.Envelope{StatusCode: http.StatusOK, Body: issue},
			wantCalled: true,
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, true, out["mcp_filtered"])
				body := out["body"].(map[string]any)["issue"].(map[string]any)
				assert.NotContains(t, body, "custom_fields")
				assert.NotContains(t, body, "description")
				assert.Equal(t, "Crash", body["subject"])
			},
		},
		{
			name:       "applies filter object",
			args:       map[string]any{"path": "/issues/1.json", "mcp_filter": map[string]any{"include_fields": []any{"subject"}}},
			response:   api.Envelope{StatusCode: http.StatusOK, Body: issue},
			wantCalled: true,
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, true, out["mcp_filtered"])
				body := out["body"].(map[string]any)["issue"].(map[string]any)
				assert.Equal(t, map[string]any{"subject": "Crash"}, body)
			},
		},
		{
			name:       "error envelope is not filtered",
			args:       map[string]any{"path": "/issues/9.json", "mcp_filter": "minimal"},
			response:   api.Envelope{StatusCode: http.StatusNotFound, Error: "HTTPStatusError: 404 Not Found"},
			wantCalled: true,
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, 404, out["status_code"])
				assert.Equal(t, "HTTPStatusError: 404 Not Found", out["error"])
				assert.NotContains(t, out, "mcp_filtered")
			},
		},
		{
			name: "unknown preset",
			args: map[string]any{"path": "/issues.json", "mcp_filter": "everything"},
			check: func(t *testing.T, req api.Request, out map[string]any) {
				assert.Equal(t, 0, out["status_code"])
				assert.Contains(t, out["error"], "ValueError: unknown preset 'everything'")
			},
		},
		{
			name:      "missing path",
			args:      map[string]any{},
			wantError: "path is required",
		},
		{
			name:      "unsupported method",
			args:      map[string]any{"path": "/issues.json", "method": "trace"},
			wantError: `unsupported method "TRACE"`,
		},
		{
			name:      "invalid params",
			args:      map[string]any{"path": "/issues.json", "params": 12},
			wantError: "params must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testdata.MockRedmineClient{
				DoFunc: func(req api.Request) api.Envelope { return tt.response },
			}
			sc := newTestServerContext(t, client)

			result, err := handleRequest(context.Background(), createTestRequest(tt.args), sc)
			require.NoError(t, err)

			if tt.wantError != "" {
				require.True(t, result.IsError)
				assert.Contains(t, resultText(t, result), tt.wantError)
				assert.Empty(t, client.Requests())
				return
			}

			require.False(t, result.IsError)
			requests := client.Requests()
			if tt.wantCalled {
				require.Len(t, requests, 1)
			} else {
				require.Empty(t, requests)
				requests = []api.Request{{}}
			}
			tt.check(t, requests[0], decodeYAML(t, result))
		})
	}
}

func TestHandleRequest_ReadOnly(t *testing.T) {
	client := &testdata.MockRedmineClient{}
	sc := newTestServerContext(t, client, server.WithReadOnly(true))

	result, err := handleRequest(context.Background(), createTestRequest(map[string]any{
		"path":   "/issues/1.json",
		"method": "delete",
	}), sc)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Delete requests are not allowed in read-only mode", resultText(t, result))
	assert.Empty(t, client.Requests())

	result, err = handleRequest(context.Background(), createTestRequest(map[string]any{
		"path": "/issues/1.json",
	}), sc)
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Len(t, client.Requests(), 1)
}

func TestHandlePathsList(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		sc := newTestServerContext(t, &testdata.MockRedmineClient{})

		result, err := handlePathsList(context.Background(), createTestRequest(nil), sc)
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Contains(t, resultText(t, result), "--openapi-spec")
	})

	t.Run("sorted paths", func(t *testing.T) {
		sc := newTestServerContext(t, &testdata.MockRedmineClient{}, server.WithPathCatalog(testCatalog(t)))

		result, err := handlePathsList(context.Background(), createTestRequest(nil), sc)
		require.NoError(t, err)

		var paths []string
		require.NoError(t, yaml.Unmarshal([]byte(resultText(t, result)), &paths))
		assert.Equal(t, []string{"/issues.json", "/projects.json"}, paths)
	})
}

func TestHandlePathsInfo(t *testing.T) {
	sc := newTestServerContext(t, &testdata.MockRedmineClient{}, server.WithPathCatalog(testCatalog(t)))

	tests := []struct {
		name      string
		args      map[string]any
		wantPaths []string
		wantError string
	}{
		{
			name:      "known templates",
			args:      map[string]any{"path_templates": []any{"/issues.json", "/projects.json"}},
			wantPaths: []string{"/issues.json", "/projects.json"},
		},
		{
			name:      "unknown template is skipped",
			args:      map[string]any{"path_templates": []any{"/issues.json", "/nope.json"}},
			wantPaths: []string{"/issues.json"},
		},
		{
			name:      "json string",
			args:      map[string]any{"path_templates": `["/projects.json"]`},
			wantPaths: []string{"/projects.json"},
		},
		{
			name:      "missing",
			args:      map[string]any{},
			wantError: "path_templates is required",
		},
		{
			name:      "wrong item type",
			args:      map[string]any{"path_templates": []any{1}},
			wantError: "path_templates[0] must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handlePathsInfo(context.Background(), createTestRequest(tt.args), sc)
			require.NoError(t, err)

			if tt.wantError != "" {
				require.True(t, result.IsError)
				assert.Contains(t, resultText(t, result), tt.wantError)
				return
			}

			out := decodeYAML(t, result)
			assert.Len(t, out, len(tt.wantPaths))
			for _, p := range tt.wantPaths {
				require.Contains(t, out, p)
				entry := out[p].(map[string]any)
				assert.Contains(t, entry, "get")
				assert.Contains(t, entry, capabilitiesKey)
			}
		})
	}
}

func TestWithCapabilities_DoesNotModifyCatalogEntry(t *testing.T) {
	entry := map[string]any{"get": map[string]any{"summary": "List issues"}}

	described := withCapabilities("/issues.json", entry)

	assert.Contains(t, described, capabilitiesKey)
	assert.NotContains(t, entry, capabilitiesKey)
}

func TestHandleUpload(t *testing.T) {
	client := &testdata.MockRedmineClient{
		UploadFunc: func(filePath, description string) api.Envelope {
			return api.Envelope{StatusCode: http.StatusCreated, Body: map[string]any{"upload": map[string]any{"token": "7.abc"}}}
		},
	}
	sc := newTestServerContext(t, client)

	result, err := handleUpload(context.Background(), createTestRequest(map[string]any{
		"file_path":   "/tmp/report.pdf",
		"description": "weekly report",
	}), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeYAML(t, result)
	assert.Equal(t, 201, out["status_code"])
	assert.Equal(t, []testdata.UploadCall{{FilePath: "/tmp/report.pdf", Description: "weekly report"}}, client.Uploads())

	t.Run("missing file_path", func(t *testing.T) {
		result, err := handleUpload(context.Background(), createTestRequest(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "file_path is required", resultText(t, result))
	})

	t.Run("read-only", func(t *testing.T) {
		roClient := &testdata.MockRedmineClient{}
		roSC := newTestServerContext(t, roClient, server.WithReadOnly(true))

		result, err := handleUpload(context.Background(), createTestRequest(map[string]any{"file_path": "/tmp/a"}), roSC)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Empty(t, roClient.Uploads())
	})
}

func TestHandleDownload(t *testing.T) {
	tests := []struct {
		name      string
		args      map[string]any
		want      *testdata.DownloadCall
		wantError string
	}{
		{
			name: "number id",
			args: map[string]any{"attachment_id": float64(12), "save_path": "/tmp/"},
			want: &testdata.DownloadCall{AttachmentID: 12, SavePath: "/tmp/"},
		},
		{
			name: "string id and filename",
			args: map[string]any{"attachment_id": "12", "save_path": "/tmp", "filename": "a.log"},
			want: &testdata.DownloadCall{AttachmentID: 12, SavePath: "/tmp", Filename: "a.log"},
		},
		{
			name:      "missing id",
			args:      map[string]any{"save_path": "/tmp"},
			wantError: "attachment_id is required",
		},
		{
			name:      "fractional id",
			args:      map[string]any{"attachment_id": 1.5, "save_path": "/tmp"},
			wantError: "attachment_id",
		},
		{
			name:      "missing save_path",
			args:      map[string]any{"attachment_id": float64(1)},
			wantError: "save_path is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testdata.MockRedmineClient{}
			sc := newTestServerContext(t, client)

			result, err := handleDownload(context.Background(), createTestRequest(tt.args), sc)
			require.NoError(t, err)

			if tt.wantError != "" {
				require.True(t, result.IsError)
				assert.Contains(t, resultText(t, result), tt.wantError)
				assert.Empty(t, client.Downloads())
				return
			}

			require.False(t, result.IsError)
			assert.Equal(t, []testdata.DownloadCall{*tt.want}, client.Downloads())
		})
	}
}

func TestHandleFilterPresets(t *testing.T) {
	sc := newTestServerContext(t, &testdata.MockRedmineClient{})

	result, err := handleFilterPresets(context.Background(), createTestRequest(nil), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	out := decodeYAML(t, result)
	for _, name := range []string{"minimal", "clean", "essential_issues", "essential_projects", "summary", "no_custom_fields"} {
		require.Contains(t, out, name)
		preset := out[name].(map[string]any)
		assert.NotEmpty(t, preset["description"])
		assert.NotEmpty(t, preset["configuration"])
	}

	minimal := out["minimal"].(map[string]any)["configuration"].(map[string]any)
	assert.Equal(t, 100, minimal["max_description_length"])
}

func TestHandleJournalReview(t *testing.T) {
	issue := map[string]any{
		"issue": map[string]any{
			"id": int64(42),
			"journals": []any{
				map[string]any{"id": int64(1), "notes": "Status changed", "created_on": "2024-01-02T10:00:00Z"},
				map[string]any{
					"id":         int64(2),
					"notes":      "Pull request reviewed and merged",
					"user":       map[string]any{"id": int64(7), "name": "Jane"},
					"created_on": "2024-01-03T10:00:00Z",
				},
				map[string]any{
					"id":      int64(3),
					"notes":   "",
					"details": []any{map[string]any{"property": "cf", "name": "Code Review", "new_value": "done"}},
				},
			},
		},
	}

	t.Run("classifies every journal", func(t *testing.T) {
		client := &testdata.MockRedmineClient{
			DoFunc: func(req api.Request) api.Envelope {
				return api.Envelope{StatusCode: http.StatusOK, Body: issue}
			},
		}
		sc := newTestServerContext(t, client)

		result, err := handleJournalReview(context.Background(), createTestRequest(map[string]any{"issue_id": float64(42)}), sc)
		require.NoError(t, err)
		require.False(t, result.IsError)

		requests := client.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "issues/42.json", requests[0].Path)
		assert.Equal(t, map[string]any{"include": "journals"}, requests[0].Params)

		var report journalReport
		require.NoError(t, yaml.Unmarshal([]byte(resultText(t, result)), &report))
		assert.Equal(t, int64(42), report.IssueID)
		assert.Equal(t, 3, report.Total)
		assert.Equal(t, 1, report.CodeReview)
		assert.Equal(t, 2, report.Relevant)
		require.Len(t, report.Journals, 3)

		assert.False(t, report.Journals[0].CodeReview)
		assert.False(t, report.Journals[0].Relevant)

		assert.True(t, report.Journals[1].CodeReview)
		assert.True(t, report.Journals[1].Relevant)
		assert.Equal(t, "Jane", report.Journals[1].User)
		assert.Equal(t, []string{"review", "merge", "pull_request"}, report.Journals[1].Keywords)

		assert.False(t, report.Journals[2].CodeReview)
		assert.True(t, report.Journals[2].Relevant)
	})

	t.Run("code review only", func(t *testing.T) {
		client := &testdata.MockRedmineClient{
			DoFunc: func(req api.Request) api.Envelope {
				return api.Envelope{StatusCode: http.StatusOK, Body: issue}
			},
		}
		sc := newTestServerContext(t, client)

		result, err := handleJournalReview(context.Background(), createTestRequest(map[string]any{
			"issue_id":         "42",
			"code_review_only": true,
		}), sc)
		require.NoError(t, err)

		var report journalReport
		require.NoError(t, yaml.Unmarshal([]byte(resultText(t, result)), &report))
		assert.Equal(t, 3, report.Total)
		require.Len(t, report.Journals, 1)
		assert.True(t, report.Journals[0].CodeReview)
	})

	t.Run("failed fetch returns envelope", func(t *testing.T) {
		client := &testdata.MockRedmineClient{
			DoFunc: func(req api.Request) api.Envelope {
				return api.Envelope{StatusCode: http.StatusNotFound, Error: "HTTPStatusError: 404 Not Found"}
			},
		}
		sc := newTestServerContext(t, client)

		result, err := handleJournalReview(context.Background(), createTestRequest(map[string]any{"issue_id": float64(9)}), sc)
		require.NoError(t, err)
		out := decodeYAML(t, result)
		assert.Equal(t, 404, out["status_code"])
	})

	t.Run("missing issue_id", func(t *testing.T) {
		sc := newTestServerContext(t, &testdata.MockRedmineClient{})

		result, err := handleJournalReview(context.Background(), createTestRequest(nil), sc)
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Equal(t, "issue_id is required", resultText(t, result))
	})
}

func newTestServerContext(t *testing.T, client *testdata.MockRedmineClient, opts ...server.Option) *server.ServerContext {
	t.Helper()
	base := []server.Option{
		server.WithRedmineClient(client),
		server.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}
	sc, err := server.NewServerContext(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func testCatalog(t *testing.T) *api.PathCatalog {
	t.Helper()
	catalog, err := api.ParsePathCatalog([]byte(testOpenAPI))
	require.NoError(t, err)
	return catalog
}

func createTestRequest(args map[string]any) mcp.CallToolRequest {
	if args == nil {
		args = map[string]any{}
	}
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeYAML(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(resultText(t, result)), &out))
	return out
}
