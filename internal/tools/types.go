package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns args[key] when it is a string, or "".
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntegerArg reads an integer argument. MCP clients send numbers as float64;
// numeric strings are accepted too. The second result reports whether the key
// was present at all.
func IntegerArg(args map[string]any, key string) (int64, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, true, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int64(n), true, nil
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, true, fmt.Errorf("%s must be an integer, got %s", key, n)
		}
		return i, true, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, true, fmt.Errorf("%s must be an integer, got %q", key, n)
		}
		return i, true, nil
	default:
		return 0, true, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

// ObjectArg reads an object argument. Some clients send objects as JSON
// strings, so a string holding a JSON object is decoded.
func ObjectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s must be an object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s must be an object, got %T", key, v)
	}
}

// StringSliceArg reads an array of strings. A JSON array encoded as a string
// and a single bare string are accepted as well.
func StringSliceArg(args map[string]any, key string) ([]string, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, got %T", key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("%s must be an array of strings: %w", key, err)
			}
			return out, nil
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings, got %T", key, v)
	}
}
