package output

import "strings"

// Capabilities documents the response processing the server adds on top of
// the Redmine API for path. It is attached to path descriptions so that LLM
// clients discover mcp_filter.
func Capabilities(path string) map[string]any {
	options := map[string]any{
		KeyRemoveEmpty: map[string]any{
			"type":        "boolean",
			"description": "Remove fields with null/empty values",
			"default":     false,
			"example":     true,
		},
		KeyExcludeFields: map[string]any{
			"type":        "array",
			"description": "List of field names to exclude from response",
			"example":     []any{"custom_fields", "journals"},
		},
		KeyIncludeFields: map[string]any{
			"type":        "array",
			"description": "Only include these specific fields (overrides exclude_fields)",
			"example":     []any{"id", "subject", "status", "assigned_to"},
		},
		KeyMaxDescriptionLength: map[string]any{
			"type":        "integer",
			"description": "Truncate description, notes and text fields to this length",
			"example":     200,
		},
		KeyMaxArrayItems: map[string]any{
			"type":        "integer",
			"description": "Limit arrays to this many items",
			"example":     10,
		},
	}

	if strings.Contains(path, "issues") {
		options[KeyRemoveCustomFields] = map[string]any{
			"type":        "boolean",
			"description": "Remove all custom_fields array",
			"default":     false,
			"example":     true,
		}
		options[KeyKeepCustomFields] = map[string]any{
			"type":        "array",
			"description": "Keep only these custom fields by name",
			"example":     []any{"Build", "Owner", "Priority"},
		}
		options[KeyJournals] = map[string]any{
			"type":        "object",
			"description": "Journal filtering policy; requires include=journals on the request",
			"properties": map[string]any{
				KeyCodeReviewOnly: map[string]any{
					"type":        "boolean",
					"description": "Keep only journal entries whose notes document code review activity, without their details",
					"default":     false,
				},
			},
			"example": map[string]any{KeyCodeReviewOnly: true},
		}
	}

	return map[string]any{
		"description": "Enhanced processing capabilities provided by the MCP server",
		"response_filtering": map[string]any{
			"description": "Reduce response size while preserving essential data",
			"parameter":   "mcp_filter",
			"usage":       "Add 'mcp_filter' parameter to redmine_request() for response processing",
			"options":     options,
			"presets": map[string]any{
				"description":       "Predefined filter configurations for common use cases",
				"usage":             "Use preset name as mcp_filter value (e.g., mcp_filter='clean')",
				"available_presets": PresetDocumentation(),
			},
		},
	}
}
