package instrumentation

import (
	"strings"
	"unicode"
)

// Cardinality helpers for metric labels.
//
// Redmine paths embed numeric identifiers (issues/1234.json) and free-form
// project identifiers, so they must never be used as label values directly.

// ResourceUnknown is used when a path has no recognisable resource segment.
const ResourceUnknown = "unknown"

// ResourceFromPath reduces a Redmine API path to its top-level resource.
//
//	ResourceFromPath("/issues/1234.json?include=journals") // "issues"
//	ResourceFromPath("projects/ops/issues.json")           // "projects"
//	ResourceFromPath("/uploads.json")                      // "uploads"
//	ResourceFromPath("")                                   // "unknown"
func ResourceFromPath(path string) string {
	path = stripQuery(path)
	path = strings.Trim(path, "/")
	if path == "" {
		return ResourceUnknown
	}

	first, _, _ := strings.Cut(path, "/")
	first = strings.TrimSuffix(first, ".json")
	first = strings.TrimSuffix(first, ".xml")
	if first == "" || isNumeric(first) {
		return ResourceUnknown
	}
	return strings.ToLower(first)
}

// NormalizePath replaces numeric segments with "{id}" and drops the query,
// so a path can be used as a bounded-cardinality label.
//
//	NormalizePath("/issues/1234.json")               // "/issues/{id}.json"
//	NormalizePath("/attachments/download/7/a.png")   // "/attachments/download/{id}/a.png"
func NormalizePath(path string) string {
	path = stripQuery(path)
	if path == "" {
		return "/"
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		base, ext := seg, ""
		if dot := strings.IndexByte(seg, '.'); dot > 0 {
			base, ext = seg[:dot], seg[dot:]
		}
		if isNumeric(base) {
			segments[i] = "{id}" + ext
		}
	}
	return strings.Join(segments, "/")
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
