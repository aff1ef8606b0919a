package review

import (
	"regexp"
)

// Group identifies one family of code-review signals.
type Group string

// Signal families. Primary is sufficient on its own; the remaining four only
// count when they corroborate each other.
const (
	GroupPrimary   Group = "primary"
	GroupSecondary Group = "secondary"
	GroupURL       Group = "url"
	GroupCommit    Group = "commit"
	GroupTextile   Group = "textile"
)

// PatternGroup is a named, ordered set of case-insensitive patterns.
type PatternGroup struct {
	Name     Group
	Patterns []*regexp.Regexp
}

// count returns how many patterns of the group match text at least once.
func (g PatternGroup) count(text string) int {
	n := 0
	for _, p := range g.Patterns {
		if p.MatchString(text) {
			n++
		}
	}
	return n
}

// matchesAny reports whether any pattern of the group matches text.
func (g PatternGroup) matchesAny(text string) bool {
	for _, p := range g.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func mustGroup(name Group, exprs ...string) PatternGroup {
	g := PatternGroup{Name: name, Patterns: make([]*regexp.Regexp, 0, len(exprs))}
	for _, expr := range exprs {
		g.Patterns = append(g.Patterns, regexp.MustCompile(`(?i)`+expr))
	}
	return g
}

// Compiled once at init and never mutated afterwards; safe for concurrent use.
var (
	primaryGroup = mustGroup(GroupPrimary,
		`\*Gerrit change\* submitted`,
	)

	secondaryGroup = mustGroup(GroupSecondary,
		`\*\(Gerrit review\)\*`,
		`Gerrit change`,
		`Gerrit review`,
	)

	urlGroup = mustGroup(GroupURL,
		`https?://\S*gerrit\S*/r/c/\d+(?:/\d+)?`,
		`/r/c/\d+/\d+`,
		`/r/c/\d+`,
	)

	commitGroup = mustGroup(GroupCommit,
		`Commit:\s*\b[a-f0-9]{40}\b`,
		`Issue\s*#\d+:`,
		`\b[a-f0-9]{40}\b`,
	)

	textileGroup = mustGroup(GroupTextile,
		`\*"[^"]*":https?://\S*gerrit\S*`,
		`p\(\(\(\.\s*\*Issue\s*#\d+:`,
	)
)

// Groups returns the five pattern groups in evaluation order.
func Groups() []PatternGroup {
	return []PatternGroup{primaryGroup, secondaryGroup, urlGroup, commitGroup, textileGroup}
}

// KeywordCategory is one family of general review vocabulary. Inflected forms
// of the same word belong to a single category.
type KeywordCategory struct {
	Name    string
	Pattern *regexp.Regexp
}

func mustKeyword(name, expr string) KeywordCategory {
	return KeywordCategory{Name: name, Pattern: regexp.MustCompile(`(?i)\b(?:` + expr + `)\b`)}
}

var keywordCategories = []KeywordCategory{
	mustKeyword("review", `review|reviewed|reviewing`),
	mustKeyword("approve", `approve|approved|approval`),
	mustKeyword("reject", `reject|rejected|rejection`),
	mustKeyword("commit", `commit|committed|commits`),
	mustKeyword("merge", `merge|merged|merging`),
	mustKeyword("pull_request", `pull request|PR`),
	mustKeyword("code_review", `code review`),
	mustKeyword("peer_review", `peer review`),
}

// GroupCounts holds the per-group match counts of the corroborating groups.
// Each count is the number of patterns in the group that matched, not the
// number of occurrences.
type GroupCounts struct {
	Secondary int `json:"secondary"`
	URL       int `json:"url"`
	Commit    int `json:"commit"`
	Textile   int `json:"textile"`
}

// Present returns the number of groups with at least one match.
func (c GroupCounts) Present() int {
	n := 0
	for _, v := range []int{c.Secondary, c.URL, c.Commit, c.Textile} {
		if v > 0 {
			n++
		}
	}
	return n
}

// Total returns the sum of the per-group counts.
func (c GroupCounts) Total() int {
	return c.Secondary + c.URL + c.Commit + c.Textile
}

// Corroborated reports whether at least two distinct groups matched with at
// least two indicators overall.
func (c GroupCounts) Corroborated() bool {
	return c.Present() >= 2 && c.Total() >= 2
}

// MatchesPrimary reports whether the primary review-tooling pattern matches.
func MatchesPrimary(text any) bool {
	s, ok := asText(text)
	if !ok {
		return false
	}
	return primaryGroup.matchesAny(s)
}

// CountMatches evaluates the four corroborating groups against text.
func CountMatches(text any) GroupCounts {
	s, ok := asText(text)
	if !ok {
		return GroupCounts{}
	}
	return GroupCounts{
		Secondary: secondaryGroup.count(s),
		URL:       urlGroup.count(s),
		Commit:    commitGroup.count(s),
		Textile:   textileGroup.count(s),
	}
}

// KeywordCategories returns the distinct keyword categories found in text,
// in table order.
func KeywordCategories(text any) []string {
	s, ok := asText(text)
	if !ok {
		return nil
	}
	var found []string
	for _, k := range keywordCategories {
		if k.Pattern.MatchString(s) {
			found = append(found, k.Name)
		}
	}
	return found
}

// asText returns v as a string when it is a non-empty string.
func asText(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
