// Package review detects code-review activity in free-text change-log notes.
//
// Five fixed pattern groups supply independent signals. The primary group
// is conclusive on its own. The secondary, url, commit and textile groups
// only classify a text when at least two of them agree, which keeps a lone
// word such as "review" from being mistaken for review-tool output. A
// keyword scan over general review vocabulary is the last resort and needs
// two distinct categories.
//
// All patterns are compiled once at package initialisation and use Go's RE2
// engine, so matching time is linear in the input length. The paragraph
// extractor in [ParseMarkup] is a single-pass scanner for the same reason.
//
//	var c review.Classifier
//	ok, err := c.IsCodeReview("*Gerrit change* submitted")
package review
