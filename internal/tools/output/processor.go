package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/giantswarm/mcp-redmine/internal/instrumentation"
	"github.com/giantswarm/mcp-redmine/internal/journal"
	"github.com/giantswarm/mcp-redmine/internal/logging"
	"github.com/giantswarm/mcp-redmine/internal/redmine"
)

// errFilterPanic wraps a recovered panic from the filtered path.
var errFilterPanic = errors.New("panic during response filtering")

// FilterRecorder receives the outcome of every Apply call.
type FilterRecorder interface {
	RecordFilterOperation(ctx context.Context, outcome string)
}

// Processor is the single entry point for response filtering. It is safe for
// concurrent use.
type Processor struct {
	logger   *slog.Logger
	journals *journal.Processor
	recorder FilterRecorder
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithJournalProcessor sets the processor used for journal collections.
func WithJournalProcessor(jp *journal.Processor) ProcessorOption {
	return func(p *Processor) {
		if jp != nil {
			p.journals = jp
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r FilterRecorder) ProcessorOption {
	return func(p *Processor) {
		p.recorder = r
	}
}

// NewProcessor creates a response processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.journals == nil {
		p.journals = journal.NewProcessor(journal.WithLogger(p.logger))
	}
	return p
}

// Journals returns the journal processor used for journal collections.
func (p *Processor) Journals() *journal.Processor {
	return p.journals
}

// Apply filters env according to raw. See ApplyWithResult.
func (p *Processor) Apply(ctx context.Context, env redmine.Envelope, raw map[string]any) redmine.Envelope {
	out, _ := p.ApplyWithResult(ctx, env, raw)
	return out
}

// ApplyWithResult filters env according to raw and reports what happened.
//
// Envelopes that are not successful responses pass through untouched. An
// invalid configuration marks the envelope as filtered but leaves the body
// alone. Any failure while filtering returns the original envelope.
func (p *Processor) ApplyWithResult(ctx context.Context, env redmine.Envelope, raw map[string]any) (out redmine.Envelope, result ProcessingResult) {
	result.ProcessedAt = time.Now()

	if env.StatusCode != http.StatusOK || env.Error != "" {
		result.Outcome = OutcomePassThrough
		p.record(ctx, result.Outcome)
		return env, result
	}

	ctx, span := instrumentation.StartSpan(ctx, "response_filter.apply")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", errFilterPanic, r)
			out, result = p.fallback(ctx, env, result, err)
			instrumentation.SetSpanError(span, err)
		}
	}()

	cfg, err := ParseConfig(raw)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			result.Problems = verr.Problems
		}
		for _, problem := range result.Problems {
			p.logger.Warn("invalid response filter option",
				logging.Operation("response_filter.validate"),
				slog.String("problem", problem))
		}
		result.Outcome = OutcomeInvalidConfig
		p.record(ctx, result.Outcome)
		span.SetAttributes(attribute.String("filter.outcome", string(result.Outcome)))

		out = env
		out.Body = deepCopyValue(env.Body)
		out.Filtered = true
		return out, result
	}

	out = env
	result.BytesBefore = estimateValueSize(env.Body)
	if env.Body != nil {
		body := deepCopyValue(env.Body)
		if ContainsSensitiveData(body) {
			p.logger.Debug("masking sensitive values in response",
				logging.Operation("response_filter.mask"))
			body = MaskSecrets(body)
		}
		filtered, err := filterWith(body, cfg, p.journals)
		if err != nil {
			return p.fallback(ctx, env, result, err)
		}
		out.Body = filtered
	}
	out.Filtered = true
	result.BytesAfter = estimateValueSize(out.Body)
	result.Outcome = OutcomeFiltered
	p.record(ctx, result.Outcome)

	span.SetAttributes(
		attribute.String("filter.outcome", string(result.Outcome)),
		attribute.Int64("filter.bytes_before", result.BytesBefore),
		attribute.Int64("filter.bytes_after", result.BytesAfter),
	)
	instrumentation.SetSpanSuccess(span)

	p.logger.Debug("response filtered",
		logging.Operation("response_filter.apply"),
		slog.Int64("bytes_before", result.BytesBefore),
		slog.Int64("bytes_after", result.BytesAfter))

	return out, result
}

// fallback returns the original envelope after a failure on the filtered path.
func (p *Processor) fallback(ctx context.Context, env redmine.Envelope, result ProcessingResult, err error) (redmine.Envelope, ProcessingResult) {
	p.logger.Error("response filtering failed, returning unfiltered response",
		logging.Operation("response_filter.apply"),
		logging.Err(err))

	result.Outcome = OutcomeFallback
	result.BytesAfter = result.BytesBefore
	p.record(ctx, result.Outcome)
	return env, result
}

func (p *Processor) record(ctx context.Context, outcome Outcome) {
	if p.recorder != nil {
		p.recorder.RecordFilterOperation(ctx, string(outcome))
	}
}
