package redmine

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	api "github.com/giantswarm/mcp-redmine/internal/redmine"
	"github.com/giantswarm/mcp-redmine/internal/review"
	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/tools"
	"github.com/giantswarm/mcp-redmine/internal/tools/output"
)

const capabilitiesKey = "x-mcp-capabilities"

const emptyCatalogMessage = "No OpenAPI specification is loaded. " +
	"Start the server with --openapi-spec (or REDMINE_OPENAPI_SPEC) to browse API paths."

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
	http.MethodHead:   {},
}

// handleRequest handles redmine_request operations
func handleRequest(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path := tools.StringArg(args, "path")
	if strings.TrimSpace(path) == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	method := strings.ToUpper(strings.TrimSpace(tools.StringArg(args, "method")))
	if method == "" {
		method = http.MethodGet
	}
	if _, ok := allowedMethods[method]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported method %q", method)), nil
	}
	if blocked := tools.CheckMutatingOperation(sc, method); blocked != nil {
		return blocked, nil
	}

	params, err := tools.ObjectArg(args, "params")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data any
	body, err := tools.ObjectArg(args, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if body != nil {
		data = body
	}

	filter, err := output.ResolveFilter(args[tools.FilterParamName])
	if err != nil {
		return render(api.Failure(api.KindValidation, err))
	}

	env := sc.RedmineClient().Do(ctx, api.Request{
		Path:   path,
		Method: method,
		Data:   data,
		Params: params,
	})

	if filter != nil {
		env = sc.ResponseProcessor().Apply(ctx, env, filter)
	}

	return render(env)
}

// handlePathsList handles redmine_paths_list operations
func handlePathsList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	catalog := sc.PathCatalog()
	if catalog.Len() == 0 {
		return mcp.NewToolResultText(emptyCatalogMessage), nil
	}
	return render(catalog.Paths())
}

// handlePathsInfo handles redmine_paths_info operations
func handlePathsInfo(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	templates, err := tools.StringSliceArg(request.GetArguments(), "path_templates")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(templates) == 0 {
		return mcp.NewToolResultError("path_templates is required"), nil
	}

	catalog := sc.PathCatalog()
	if catalog.Len() == 0 {
		return mcp.NewToolResultText(emptyCatalogMessage), nil
	}

	entries := catalog.Info(templates)

	var (
		mu  sync.Mutex
		out = make(map[string]any, len(entries))
	)
	g, _ := errgroup.WithContext(ctx)
	for path, entry := range entries {
		g.Go(func() error {
			described := withCapabilities(path, entry)
			mu.Lock()
			out[path] = described
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to describe paths: %v", err)), nil
	}

	return render(out)
}

// withCapabilities copies a path entry and adds the filter capabilities.
// The catalog entry itself is left untouched.
func withCapabilities(path string, entry any) map[string]any {
	src, _ := entry.(map[string]any)
	described := make(map[string]any, len(src)+1)
	for k, v := range src {
		described[k] = v
	}
	described[capabilitiesKey] = output.Capabilities(path)
	return described
}

// handleUpload handles redmine_upload operations
func handleUpload(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filePath := tools.StringArg(args, "file_path")
	if strings.TrimSpace(filePath) == "" {
		return mcp.NewToolResultError("file_path is required"), nil
	}
	if blocked := tools.CheckMutatingOperation(sc, http.MethodPost); blocked != nil {
		return blocked, nil
	}

	return render(sc.RedmineClient().Upload(ctx, filePath, tools.StringArg(args, "description")))
}

// handleDownload handles redmine_download operations
func handleDownload(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	attachmentID, ok, err := tools.IntegerArg(args, "attachment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("attachment_id is required"), nil
	}

	savePath := tools.StringArg(args, "save_path")
	if strings.TrimSpace(savePath) == "" {
		return mcp.NewToolResultError("save_path is required"), nil
	}

	return render(sc.RedmineClient().Download(ctx, attachmentID, savePath, tools.StringArg(args, "filename")))
}

// presetInfo is one entry of the redmine_filter_presets output.
type presetInfo struct {
	Description   string         `yaml:"description"`
	Configuration map[string]any `yaml:"configuration"`
}

// handleFilterPresets handles redmine_filter_presets operations
func handleFilterPresets(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	docs := output.PresetDocumentation()
	out := make(map[string]presetInfo, len(docs))
	for _, name := range output.PresetNames() {
		cfg, err := output.Preset(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load preset %s: %v", name, err)), nil
		}
		out[name] = presetInfo{Description: docs[name], Configuration: cfg}
	}
	return render(out)
}

// journalReport summarises the review classification of an issue's journals.
type journalReport struct {
	IssueID    int64          `yaml:"issue_id"`
	Total      int            `yaml:"total"`
	CodeReview int            `yaml:"code_review"`
	Relevant   int            `yaml:"relevant"`
	Journals   []journalEntry `yaml:"journals"`
}

type journalEntry struct {
	ID         any      `yaml:"id"`
	User       string   `yaml:"user,omitempty"`
	CreatedOn  string   `yaml:"created_on,omitempty"`
	CodeReview bool     `yaml:"code_review"`
	Relevant   bool     `yaml:"relevant"`
	Keywords   []string `yaml:"keywords,omitempty"`
	Error      string   `yaml:"error,omitempty"`
}

// handleJournalReview handles redmine_journal_review operations
func handleJournalReview(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	issueID, ok, err := tools.IntegerArg(args, "issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError("issue_id is required"), nil
	}
	codeReviewOnly, _ := args["code_review_only"].(bool)

	env := sc.RedmineClient().Do(ctx, api.Request{
		Path:   fmt.Sprintf("issues/%d.json", issueID),
		Method: http.MethodGet,
		Params: map[string]any{"include": "journals"},
	})
	if !env.OK() {
		return render(env)
	}

	body, _ := env.Body.(map[string]any)
	issue, _ := body["issue"].(map[string]any)
	entries, _ := issue["journals"].([]any)

	jp := sc.ResponseProcessor().Journals()
	report := journalReport{
		IssueID:  issueID,
		Total:    len(entries),
		Journals: make([]journalEntry, 0, len(entries)),
	}
	for _, raw := range entries {
		entry := describeJournal(raw)

		isCR, err := jp.ClassifyEntry(raw)
		if err != nil {
			entry.Error = err.Error()
		}
		entry.CodeReview = isCR
		entry.Relevant = jp.IsRelevantEntry(raw)

		if entry.CodeReview {
			report.CodeReview++
		}
		if entry.Relevant {
			report.Relevant++
		}
		if codeReviewOnly && !entry.CodeReview {
			continue
		}
		report.Journals = append(report.Journals, entry)
	}

	return render(report)
}

// describeJournal pulls the identifying fields and keywords out of a
// journal entry.
func describeJournal(raw any) journalEntry {
	m, _ := raw.(map[string]any)
	entry := journalEntry{ID: m["id"]}
	if user, ok := m["user"].(map[string]any); ok {
		entry.User, _ = user["name"].(string)
	}
	entry.CreatedOn, _ = m["created_on"].(string)
	entry.Keywords = review.KeywordCategories(m["notes"])
	return entry
}

// render encodes v as YAML text.
func render(v any) (*mcp.CallToolResult, error) {
	text, err := api.YAML(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to render response: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}
