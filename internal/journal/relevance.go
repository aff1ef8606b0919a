package journal

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/giantswarm/mcp-redmine/internal/review"
)

// customFieldProperty marks a custom-field change in a journal detail.
const customFieldProperty = "cf"

// reviewFieldKeywords flag custom fields that track review state.
var reviewFieldKeywords = []string{"review", "commit", "merge", "approval", "gerrit"}

// IsRelevantEntry is the looser relevance check. Besides notes it accepts
// entries whose structural changes touch review-related custom fields or
// carry review-tool output in their old or new values. The filtering
// pipeline does not use it.
func (p *Processor) IsRelevantEntry(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}

	if notes, ok := m["notes"].(string); ok && strings.TrimSpace(notes) != "" {
		if isCR, err := p.classifier.IsCodeReview(notes); err == nil && isCR {
			return true
		}
		if review.HasMarkupCodeReviewSignal(notes) {
			return true
		}
	}

	details, _ := m["details"].([]any)
	return p.hasReviewDetails(details)
}

func (p *Processor) hasReviewDetails(details []any) bool {
	fold := cases.Fold()
	for _, item := range details {
		d, ok := item.(map[string]any)
		if !ok {
			continue
		}

		if prop, _ := d["property"].(string); prop == customFieldProperty {
			name, _ := d["name"].(string)
			folded := fold.String(name)
			for _, kw := range reviewFieldKeywords {
				if strings.Contains(folded, kw) {
					return true
				}
			}
		}

		for _, key := range []string{"old_value", "new_value"} {
			if ok, err := p.classifier.IsToolingEntry(d[key]); err == nil && ok {
				return true
			}
		}
	}
	return false
}
