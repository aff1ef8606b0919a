package output

import (
	"fmt"
	"sort"
)

var (
	listOptions    = []string{KeyIncludeFields, KeyExcludeFields, KeyKeepCustomFields}
	boolOptions    = []string{KeyRemoveEmpty, KeyRemoveCustomFields}
	integerOptions = []string{KeyMaxDescriptionLength, KeyMaxArrayItems}
)

// journalOptions are the keys accepted inside the journals object.
var journalOptions = map[string]bool{
	KeyCodeReviewOnly: true,
}

// Validate inspects a raw filter configuration and returns every problem
// found, in a stable order. It never modifies raw. Unknown top-level keys
// are ignored and a null value counts as absent.
func Validate(raw map[string]any) []string {
	var problems []string

	for _, key := range listOptions {
		v, ok := present(raw, key)
		if !ok {
			continue
		}
		items, isList := asList(v)
		if !isList {
			problems = append(problems, fmt.Sprintf("%s must be a list of strings", key))
			continue
		}
		for i, item := range items {
			if _, isString := item.(string); !isString {
				problems = append(problems,
					fmt.Sprintf("%s list items must be strings (item %d is %s)", key, i, typeName(item)))
				break
			}
		}
	}

	for _, key := range boolOptions {
		if v, ok := present(raw, key); ok {
			if _, isBool := v.(bool); !isBool {
				problems = append(problems, fmt.Sprintf("%s must be a boolean value", key))
			}
		}
	}

	for _, key := range integerOptions {
		if v, ok := present(raw, key); ok {
			if n, isInt := asInteger(v); !isInt || n <= 0 {
				problems = append(problems, fmt.Sprintf("%s must be a positive integer", key))
			}
		}
	}

	if v, ok := present(raw, KeyJournals); ok {
		problems = append(problems, validateJournals(v)...)
	}

	return problems
}

func validateJournals(v any) []string {
	j, ok := v.(map[string]any)
	if !ok {
		return []string{KeyJournals + " must be a dictionary"}
	}

	var problems []string

	unknown := make([]string, 0)
	for k := range j {
		if !journalOptions[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		problems = append(problems, fmt.Sprintf("%s: unknown option '%s'", KeyJournals, k))
	}

	if cro, ok := present(j, KeyCodeReviewOnly); ok {
		if _, isBool := cro.(bool); !isBool {
			problems = append(problems, KeyJournals+"."+KeyCodeReviewOnly+" must be a boolean value")
		}
	}

	return problems
}

// present returns raw[key] when it is set to a non-null value.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
