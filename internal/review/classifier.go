package review

import (
	"errors"
	"fmt"
)

// ErrPatternEngine reports a failure inside pattern evaluation. Callers treat
// the affected text as not code review and log degraded detection.
var ErrPatternEngine = errors.New("pattern engine failure")

// minKeywordCategories is the number of distinct keyword categories needed
// by the fallback scan.
const minKeywordCategories = 2

// Classifier decides whether a text body documents a code-review event.
// The zero value is ready to use and safe for concurrent use.
type Classifier struct{}

// Decision explains how a text was classified.
type Decision struct {
	CodeReview bool        `json:"code_review"`
	Primary    bool        `json:"primary"`
	Groups     GroupCounts `json:"groups"`
	Keywords   []string    `json:"keywords,omitempty"`
}

// IsCodeReview classifies text. A primary match is sufficient; otherwise two
// corroborating groups, or failing that two distinct keyword categories, are
// required.
func (c Classifier) IsCodeReview(text any) (bool, error) {
	d, err := c.Explain(text)
	return d.CodeReview, err
}

// IsToolingEntry is the stricter variant without the keyword fallback. It
// only accepts text carrying review-tool evidence.
func (c Classifier) IsToolingEntry(text any) (ok bool, err error) {
	defer recoverPatternPanic(&ok, &err)

	if _, isText := asText(text); !isText {
		return false, nil
	}
	if MatchesPrimary(text) {
		return true, nil
	}
	return CountMatches(text).Corroborated(), nil
}

// Explain classifies text and reports the signals behind the decision.
func (c Classifier) Explain(text any) (d Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = Decision{}
			err = fmt.Errorf("%w: %v", ErrPatternEngine, r)
		}
	}()

	if _, isText := asText(text); !isText {
		return Decision{}, nil
	}

	if MatchesPrimary(text) {
		return Decision{CodeReview: true, Primary: true}, nil
	}

	d.Groups = CountMatches(text)
	if d.Groups.Corroborated() {
		d.CodeReview = true
		return d, nil
	}

	d.Keywords = KeywordCategories(text)
	d.CodeReview = len(d.Keywords) >= minKeywordCategories
	return d, nil
}

func recoverPatternPanic(ok *bool, err *error) {
	if r := recover(); r != nil {
		*ok = false
		*err = fmt.Errorf("%w: %v", ErrPatternEngine, r)
	}
}
