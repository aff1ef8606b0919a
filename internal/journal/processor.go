package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/giantswarm/mcp-redmine/internal/logging"
	"github.com/giantswarm/mcp-redmine/internal/review"
)

// ErrInvalidEntry is returned for journal entries that are not mappings.
var ErrInvalidEntry = errors.New("journal entry is not a mapping")

// Decision values reported to a DecisionRecorder.
const (
	DecisionKept    = "kept"
	DecisionDropped = "dropped"
	DecisionError   = "error"
)

// Policy selects which journal entries survive filtering. The zero value
// disables filtering.
type Policy struct {
	CodeReviewOnly bool `json:"code_review_only" yaml:"code_review_only"`
}

// Enabled reports whether the policy changes anything.
func (p Policy) Enabled() bool {
	return p.CodeReviewOnly
}

// DecisionRecorder receives one call per classified entry.
type DecisionRecorder interface {
	RecordJournalDecision(ctx context.Context, decision string)
}

// Processor applies the code-review classifier to journal collections.
// It holds no mutable state and is safe for concurrent use.
type Processor struct {
	classifier review.Classifier
	logger     *slog.Logger
	recorder   DecisionRecorder
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for per-entry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r DecisionRecorder) Option {
	return func(p *Processor) {
		p.recorder = r
	}
}

// NewProcessor creates a journal processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ClassifyEntry reports whether entry carries notes that classify as code
// review. Entries without notes never qualify, whatever their details say.
func (p *Processor) ClassifyEntry(entry any) (bool, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrInvalidEntry, entry)
	}

	notes, ok := m["notes"].(string)
	if !ok || strings.TrimSpace(notes) == "" {
		return false, nil
	}

	return p.classifier.IsCodeReview(notes)
}

// FilterEntries returns the entries that satisfy policy, in input order.
// Kept entries are shallow copies without their details. Entries that fail
// classification are logged and skipped.
func (p *Processor) FilterEntries(entries []any, policy Policy) []any {
	if !policy.Enabled() {
		return entries
	}

	ctx := context.Background()
	kept := make([]any, 0, len(entries))
	for _, entry := range entries {
		ok, err := p.ClassifyEntry(entry)
		if err != nil {
			p.logger.Warn("journal filtering error",
				logging.Operation("journal.filter"),
				logging.JournalID(entryID(entry)),
				logging.Err(err))
			p.record(ctx, DecisionError)
			continue
		}
		if !ok {
			p.record(ctx, DecisionDropped)
			continue
		}
		kept = append(kept, stripDetails(entry.(map[string]any)))
		p.record(ctx, DecisionKept)
	}

	p.logger.Debug("journal entries filtered",
		logging.Operation("journal.filter"),
		slog.Int("total", len(entries)),
		slog.Int("kept", len(kept)))

	return kept
}

func (p *Processor) record(ctx context.Context, decision string) {
	if p.recorder != nil {
		p.recorder.RecordJournalDecision(ctx, decision)
	}
}

// stripDetails returns a shallow copy of entry without the details key.
func stripDetails(entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry))
	for k, v := range entry {
		if k == "details" {
			continue
		}
		out[k] = v
	}
	return out
}

// entryID renders an entry id for log correlation.
func entryID(entry any) string {
	m, ok := entry.(map[string]any)
	if !ok {
		return "invalid"
	}
	id, ok := m["id"]
	if !ok || id == nil {
		return "unknown"
	}
	return fmt.Sprint(id)
}
