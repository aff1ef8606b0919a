package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// presetCatalog holds the named filter configurations. Preset hands out
// copies so callers cannot alter the catalog.
var presetCatalog = map[string]map[string]any{
	"minimal": {
		KeyRemoveEmpty:          true,
		KeyRemoveCustomFields:   true,
		KeyMaxDescriptionLength: 100,
	},
	"clean": {
		KeyRemoveEmpty:          true,
		KeyMaxArrayItems:        10,
		KeyMaxDescriptionLength: 500,
	},
	"essential_issues": {
		KeyRemoveEmpty:          true,
		KeyRemoveCustomFields:   true,
		KeyMaxDescriptionLength: 300,
		KeyExcludeFields:        []any{"journals", "changesets", "attachments", "watchers"},
	},
	"essential_projects": {
		KeyRemoveEmpty:          true,
		KeyRemoveCustomFields:   true,
		KeyMaxDescriptionLength: 200,
		KeyExcludeFields:        []any{"trackers", "issue_categories", "enabled_modules"},
	},
	"summary": {
		KeyRemoveEmpty:          true,
		KeyRemoveCustomFields:   true,
		KeyMaxDescriptionLength: 150,
		KeyMaxArrayItems:        5,
		KeyExcludeFields:        []any{"journals", "changesets", "attachments"},
	},
	"no_custom_fields": {
		KeyRemoveCustomFields: true,
		KeyRemoveEmpty:        true,
	},
}

var presetDocs = map[string]string{
	"minimal":            "Remove custom fields, empty values, truncate to 100 chars",
	"clean":              "Remove empty fields, limit arrays to 10, truncate to 500 chars",
	"essential_issues":   "Remove custom fields, journals, attachments, watchers, truncate to 300 chars",
	"essential_projects": "Remove custom fields, trackers, categories, modules, truncate to 200 chars",
	"summary":            "Remove custom fields, journals, attachments, truncate to 150 chars, limit arrays to 5",
	"no_custom_fields":   "Remove custom fields and empty values only",
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presetCatalog))
	for name := range presetCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetDocumentation maps each preset name to a one-line description.
func PresetDocumentation() map[string]string {
	docs := make(map[string]string, len(presetDocs))
	for k, v := range presetDocs {
		docs[k] = v
	}
	return docs
}

// Preset returns a fresh copy of the named filter configuration.
func Preset(name string) (map[string]any, error) {
	preset, ok := presetCatalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset '%s'. Available presets: %s",
			name, strings.Join(PresetNames(), ", "))
	}
	return deepCopyMap(preset), nil
}

// ResolveFilter turns an mcp_filter tool argument into a raw configuration.
// It accepts a preset name, a mapping, or a string holding a JSON object. A
// nil argument resolves to nil, meaning no filtering was requested.
func ResolveFilter(arg any) (map[string]any, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "{") {
			var raw map[string]any
			if err := json.Unmarshal([]byte(s), &raw); err != nil {
				return nil, fmt.Errorf("mcp_filter is not a valid JSON object: %w", err)
			}
			return raw, nil
		}
		return Preset(s)
	default:
		return nil, fmt.Errorf("mcp_filter must be a preset name or an object, got %s", typeName(arg))
	}
}
