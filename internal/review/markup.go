package review

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// paragraphMarker introduces an indented textile paragraph block.
const paragraphMarker = "p(((."

var (
	boldPattern     = regexp.MustCompile(`\*([^*]+)\*`)
	linkPattern     = regexp.MustCompile(`"([^"]+)":([^\s*]+)`)
	issueRefPattern = regexp.MustCompile(`Issue\s*#(\d+):\s*([^*\n]+)`)
)

// boldKeywords are matched against case-folded bold spans.
var boldKeywords = []string{"gerrit", "change", "review"}

// Link is a textile "text":url pair.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// IssueRef is an "Issue #N: Title" reference.
type IssueRef struct {
	Number string `json:"number"`
	Title  string `json:"title"`
}

// Markup holds the structural elements extracted from one text body.
type Markup struct {
	Bold       []string   `json:"bold,omitempty"`
	Links      []Link     `json:"links,omitempty"`
	Paragraphs []string   `json:"paragraphs,omitempty"`
	IssueRefs  []IssueRef `json:"issue_refs,omitempty"`
}

// ParseMarkup extracts bold spans, links, paragraph blocks and issue
// references from text. Non-text input yields an empty Markup.
func ParseMarkup(text any) Markup {
	s, ok := asText(text)
	if !ok {
		return Markup{}
	}

	var m Markup
	for _, match := range boldPattern.FindAllStringSubmatch(s, -1) {
		m.Bold = append(m.Bold, match[1])
	}
	for _, match := range linkPattern.FindAllStringSubmatch(s, -1) {
		m.Links = append(m.Links, Link{Text: match[1], URL: match[2]})
	}
	m.Paragraphs = parseParagraphs(s)
	for _, match := range issueRefPattern.FindAllStringSubmatch(s, -1) {
		m.IssueRefs = append(m.IssueRefs, IssueRef{Number: match[1], Title: strings.TrimSpace(match[2])})
	}
	return m
}

// parseParagraphs scans for paragraph markers in a single forward pass. A
// block runs from the marker, past any whitespace, through every following
// line up to the first empty line.
func parseParagraphs(s string) []string {
	var paragraphs []string
	pos := 0
	for pos < len(s) {
		i := strings.Index(s[pos:], paragraphMarker)
		if i < 0 {
			break
		}
		start := pos + i + len(paragraphMarker)
		for start < len(s) && isSpace(s[start]) {
			start++
		}

		end := start
		for {
			nl := strings.IndexByte(s[end:], '\n')
			if nl < 0 {
				end = len(s)
				break
			}
			lineEnd := end + nl
			if lineEnd+1 < len(s) && s[lineEnd+1] != '\n' {
				end = lineEnd + 1
				continue
			}
			end = lineEnd
			break
		}

		paragraphs = append(paragraphs, strings.TrimSpace(s[start:end]))
		pos = end
	}
	return paragraphs
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// HasMarkupCodeReviewSignal reports whether the markup of text points at
// review tooling: a textile pattern, a link into the review tool, or a bold
// span naming it.
func HasMarkupCodeReviewSignal(text any) bool {
	s, ok := asText(text)
	if !ok {
		return false
	}
	if textileGroup.matchesAny(s) {
		return true
	}

	m := ParseMarkup(s)
	for _, l := range m.Links {
		if strings.Contains(strings.ToLower(l.URL), "gerrit") || strings.Contains(l.URL, "/r/c/") {
			return true
		}
	}

	fold := cases.Fold()
	for _, b := range m.Bold {
		folded := fold.String(b)
		for _, kw := range boldKeywords {
			if strings.Contains(folded, kw) {
				return true
			}
		}
	}
	return false
}
