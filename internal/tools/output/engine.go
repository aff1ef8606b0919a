package output

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/giantswarm/mcp-redmine/internal/journal"
)

// ErrUnsupportedNode is returned when the tree holds a value that cannot come
// from JSON decoding, such as a channel or a function.
var ErrUnsupportedNode = errors.New("unsupported node in response tree")

const (
	customFieldsKey = "custom_fields"
	journalsKey     = "journals"
)

// wrapperKeys are Redmine envelope keys that always pass include_fields, so
// that inclusion can be expressed against the records inside them.
var wrapperKeys = map[string]bool{
	"issue":        true,
	"issues":       true,
	"project":      true,
	"projects":     true,
	"user":         true,
	"users":        true,
	"time_entry":   true,
	"time_entries": true,
	"version":      true,
	"versions":     true,
	"group":        true,
	"groups":       true,
	"membership":   true,
	"memberships":  true,
	"wiki_page":    true,
	"wiki_pages":   true,
	"news":         true,
	"queries":      true,
}

// IsWrapperKey reports whether key always passes include_fields.
func IsWrapperKey(key string) bool {
	return wrapperKeys[key]
}

// engine walks one tree with one configuration.
type engine struct {
	cfg      *Config
	journals *journal.Processor
}

// Filter applies cfg to node at every depth and returns a new tree. The input
// is never modified. A nil cfg returns node unchanged.
func Filter(node any, cfg *Config) (any, error) {
	return filterWith(node, cfg, nil)
}

func filterWith(node any, cfg *Config, jp *journal.Processor) (any, error) {
	if cfg == nil {
		return node, nil
	}
	if jp == nil {
		jp = journal.NewProcessor()
	}
	e := &engine{cfg: cfg.Clone(), journals: jp}
	return e.filter(node)
}

func (e *engine) filter(node any) (any, error) {
	switch val := node.(type) {
	case map[string]any:
		return e.filterMapping(val)
	case []any:
		return e.filterSequence(val)
	case nil, string, bool, float64, float32, int, int64, int32, []byte:
		return val, nil
	}

	switch reflect.ValueOf(node).Kind() {
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedNode, node)
	}
	return node, nil
}

func (e *engine) filterMapping(m map[string]any) (map[string]any, error) {
	cfg := e.cfg
	out := make(map[string]any, len(m))

	for key, value := range m {
		if cfg.RemoveEmpty && isEmptyValue(value) {
			continue
		}

		if key == customFieldsKey {
			if fields, ok := value.([]any); ok {
				if cfg.RemoveCustomFields {
					continue
				}
				if len(cfg.keepCustomSet) > 0 {
					if kept := e.keepCustomFields(fields); len(kept) > 0 {
						out[key] = kept
					}
					continue
				}
			}
		}

		if len(cfg.includeSet) > 0 {
			if _, ok := cfg.includeSet[key]; !ok && !wrapperKeys[key] {
				continue
			}
		} else if len(cfg.excludeSet) > 0 {
			if _, ok := cfg.excludeSet[key]; ok {
				continue
			}
		}

		if longTextFields[key] {
			if s, ok := value.(string); ok {
				if truncated, cut := truncateText(s, cfg.MaxDescriptionLength); cut {
					out[key] = truncated
					continue
				}
			}
		}

		var (
			filtered any
			err      error
		)
		entries, isJournals := value.([]any)
		isJournals = isJournals && key == journalsKey
		switch {
		case isJournals && cfg.Journals != nil:
			// A configured policy owns the journals, even when it keeps them all.
			out[key] = deepCopyValue(e.journals.FilterEntries(entries, *cfg.Journals))
			continue
		case isJournals:
			// Without a policy journals recurse, but max_array_items does not apply.
			filtered, err = e.filterItems(entries, 0)
		default:
			filtered, err = e.filter(value)
		}
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if cfg.RemoveEmpty && isEmptyValue(filtered) {
			continue
		}
		out[key] = filtered
	}

	return out, nil
}

func (e *engine) filterSequence(items []any) ([]any, error) {
	return e.filterItems(items, e.cfg.MaxArrayItems)
}

// filterItems filters each element and stops once maxItems elements are
// kept. A non-positive maxItems means no bound.
func (e *engine) filterItems(items []any, maxItems int) ([]any, error) {
	out := make([]any, 0, len(items))

	for i, item := range items {
		filtered, err := e.filter(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if e.cfg.RemoveEmpty && isEmptyValue(filtered) {
			continue
		}
		out = append(out, filtered)
		if maxItems > 0 && len(out) >= maxItems {
			break
		}
	}

	return out, nil
}

// keepCustomFields returns the custom fields whose name is in the keep set.
func (e *engine) keepCustomFields(fields []any) []any {
	kept := make([]any, 0, len(fields))
	for _, f := range fields {
		cf, ok := f.(map[string]any)
		if !ok {
			continue
		}
		name, _ := cf["name"].(string)
		if _, ok := e.cfg.keepCustomSet[name]; ok {
			kept = append(kept, deepCopyMap(cf))
		}
	}
	return kept
}
