package tools

import (
	"strings"

	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-redmine/internal/tools/output"
)

// FilterParamName is the argument that selects response filtering.
const FilterParamName = "mcp_filter"

// WithFilterParam adds the mcp_filter argument to a tool. It accepts either a
// preset name or a filter object, so the schema is written by hand rather
// than with one of the typed With* helpers.
//
// Usage in tool registration:
//
//	tool := mcp.NewTool("redmine_request",
//	    mcp.WithDescription("..."),
//	    tools.WithFilterParam(),
//	)
func WithFilterParam() mcp.ToolOption {
	presets := output.PresetNames()
	description := "Optional response filter. Either a preset name (" +
		strings.Join(presets, ", ") +
		") or an object with any of: include_fields, exclude_fields, remove_empty, " +
		"remove_custom_fields, keep_custom_fields, max_description_length, max_array_items, " +
		"journals ({code_review_only: bool}). Use redmine_filter_presets to see what each preset does."

	enum := make([]any, 0, len(presets))
	for _, p := range presets {
		enum = append(enum, p)
	}

	return func(t *mcp.Tool) {
		if t.InputSchema.Properties == nil {
			t.InputSchema.Properties = map[string]any{}
		}
		t.InputSchema.Properties[FilterParamName] = map[string]any{
			"description": description,
			"anyOf": []any{
				map[string]any{"type": "string", "enum": enum},
				map[string]any{"type": "object"},
			},
		}
	}
}

// FilterPresetName returns the preset name when mcp_filter is a plain
// preset reference, and "" otherwise.
func FilterPresetName(args map[string]any) string {
	s, ok := args[FilterParamName].(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "{") {
		return ""
	}
	return s
}
