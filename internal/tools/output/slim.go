package output

import (
	"strings"
)

// isEmptyValue reports whether v counts as empty for remove_empty: null, a
// whitespace-only string, or an empty collection. Zero and false are values.
func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	default:
		return false
	}
}

// RemoveEmpty returns a copy of data with empty values removed at every depth.
func RemoveEmpty(data any) (any, error) {
	return Filter(data, &Config{RemoveEmpty: true})
}

// deepCopyMap creates a deep copy of a map.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}

	return result
}

// deepCopyValue creates a deep copy of a decoded JSON value.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = deepCopyValue(item)
		}
		return result
	case []string:
		return cloneStrings(val)
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out
	default:
		// Primitives are copied by value
		return v
	}
}

// estimateValueSize estimates the JSON size of a value.
func estimateValueSize(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 4 // "null"
	case bool:
		return 5 // "true" or "false"
	case string:
		return int64(len(val) + 2) // quotes
	case []byte:
		return int64(len(val))
	case float64, int64, int:
		return 10 // rough average for numbers
	case map[string]any:
		var size int64 = 2 // braces
		for k, subVal := range val {
			size += int64(len(k)+3) + estimateValueSize(subVal) // key + quotes + colon
		}
		return size
	case []any:
		var size int64 = 2 // brackets
		for _, item := range val {
			size += estimateValueSize(item) + 1 // comma
		}
		return size
	default:
		return 10 // rough default
	}
}
