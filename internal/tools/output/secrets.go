package output

import (
	"strings"
)

// RedactedValue is the placeholder used for masked secret data.
const RedactedValue = "***REDACTED***"

// sensitiveKeys are masked wherever they appear. Redmine returns the
// caller's api_key from /users/current.json.
var sensitiveKeys = map[string]bool{
	"api_key":  true,
	"password": true,
}

// MaskSecrets returns a copy of data with sensitive values replaced by
// RedactedValue at any depth. Null values are left alone.
func MaskSecrets(data any) any {
	switch val := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v := range val {
			if IsSensitiveKey(k) && v != nil {
				result[k] = RedactedValue
				continue
			}
			result[k] = MaskSecrets(v)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = MaskSecrets(item)
		}
		return result
	default:
		return data
	}
}

// IsSensitiveKey reports whether values under key are masked.
func IsSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// ContainsSensitiveData reports whether data holds an unmasked sensitive value.
func ContainsSensitiveData(data any) bool {
	switch val := data.(type) {
	case map[string]any:
		for k, v := range val {
			if IsSensitiveKey(k) && v != nil && v != RedactedValue {
				return true
			}
			if ContainsSensitiveData(v) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if ContainsSensitiveData(item) {
				return true
			}
		}
	}
	return false
}
