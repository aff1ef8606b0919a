package redmine

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-redmine/internal/server"
	"github.com/giantswarm/mcp-redmine/internal/tools"
)

// Tool names.
const (
	ToolRequest       = "redmine_request"
	ToolPathsList     = "redmine_paths_list"
	ToolPathsInfo     = "redmine_paths_info"
	ToolUpload        = "redmine_upload"
	ToolDownload      = "redmine_download"
	ToolFilterPresets = "redmine_filter_presets"
	ToolJournalReview = "redmine_journal_review"
)

const requestDescription = `Make a request to the Redmine API

Args:
    path: API endpoint path (e.g. '/issues.json')
    method: HTTP method to use (default: 'get')
    data: Dictionary for request body (for POST/PUT)
    params: Dictionary for query parameters
    mcp_filter: Optional preset name or filter object to shrink the response

Returns:
    str: YAML string containing response status code, body and error message.
    Filtered responses carry mcp_filtered: true.`

// requestToolDescription appends the operator's instructions, if any.
func requestToolDescription(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return requestDescription
	}
	return requestDescription + "\n\n" + instructions
}

// RegisterRedmineTools registers all Redmine tools with the MCP server.
func RegisterRedmineTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	instructions := ""
	if cfg := sc.Config(); cfg != nil {
		instructions = cfg.RequestInstructions
	}

	// redmine_request tool
	requestTool := mcp.NewTool(ToolRequest,
		mcp.WithDescription(requestToolDescription(instructions)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("API endpoint path (e.g. '/issues.json')"),
		),
		mcp.WithString("method",
			mcp.Description("HTTP method to use: get, post, put, patch or delete (default: 'get')"),
		),
		mcp.WithObject("data",
			mcp.Description("Request body for POST/PUT, sent as JSON"),
		),
		mcp.WithObject("params",
			mcp.Description("Query parameters. Array values are sent as repeated keys"),
		),
		tools.WithFilterParam(),
	)
	s.AddTool(requestTool, tools.WrapWithAuditLogging(ToolRequest, handleRequest, sc))

	// redmine_paths_list tool
	pathsListTool := mcp.NewTool(ToolPathsList,
		mcp.WithDescription("Return a list of available API paths from the OpenAPI spec. "+
			"Use redmine_paths_info to get the full specification for a path."),
	)
	s.AddTool(pathsListTool, tools.WrapWithAuditLogging(ToolPathsList, handlePathsList, sc))

	// redmine_paths_info tool
	pathsInfoTool := mcp.NewTool(ToolPathsInfo,
		mcp.WithDescription("Get full path information for the given path templates. "+
			"Each entry includes x-mcp-capabilities describing the response filters available for it."),
		mcp.WithArray("path_templates",
			mcp.Required(),
			mcp.Description("List of path templates (e.g. ['/issues.json', '/projects.json'])"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
	s.AddTool(pathsInfoTool, tools.WrapWithAuditLogging(ToolPathsInfo, handlePathsInfo, sc))

	// redmine_upload tool
	uploadTool := mcp.NewTool(ToolUpload,
		mcp.WithDescription("Upload a file to Redmine and get a token for attaching it to an issue. "+
			"The body of the response contains the upload token."),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path of the file to upload ('~' is expanded)"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description for the file"),
		),
	)
	s.AddTool(uploadTool, tools.WrapWithAuditLogging(ToolUpload, handleUpload, sc))

	// redmine_download tool
	downloadTool := mcp.NewTool(ToolDownload,
		mcp.WithDescription("Download an attachment from Redmine and save it to a local file"),
		mcp.WithNumber("attachment_id",
			mcp.Required(),
			mcp.Description("The ID of the attachment to download"),
		),
		mcp.WithString("save_path",
			mcp.Required(),
			mcp.Description("Absolute path to save to. A directory (existing, or ending in '/') keeps the attachment's filename"),
		),
		mcp.WithString("filename",
			mcp.Description("Optional filename. Looked up from the attachment metadata when omitted"),
		),
	)
	s.AddTool(downloadTool, tools.WrapWithAuditLogging(ToolDownload, handleDownload, sc))

	// redmine_filter_presets tool
	presetsTool := mcp.NewTool(ToolFilterPresets,
		mcp.WithDescription("List the named response filter presets accepted by mcp_filter, "+
			"with a description and the full configuration of each"),
	)
	s.AddTool(presetsTool, tools.WrapWithAuditLogging(ToolFilterPresets, handleFilterPresets, sc))

	// redmine_journal_review tool
	journalTool := mcp.NewTool(ToolJournalReview,
		mcp.WithDescription("Classify the journal entries of an issue. For every entry it reports whether the "+
			"notes document a code review (strict), whether the entry is review-related at all (loose, "+
			"also considers changed review fields) and which review keyword categories were found."),
		mcp.WithNumber("issue_id",
			mcp.Required(),
			mcp.Description("The ID of the issue"),
		),
		mcp.WithBoolean("code_review_only",
			mcp.Description("Only list entries classified as code review (default: false)"),
		),
	)
	s.AddTool(journalTool, tools.WrapWithAuditLogging(ToolJournalReview, handleJournalReview, sc))

	return nil
}
