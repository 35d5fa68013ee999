// Package application wires criteria, metric providers and the judge into
// report passes over one or many documents.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/galley/internal/domain"
	"github.com/ahrav/galley/internal/ports"
)

// reasonNoExtractor is the skip reason for criteria without an extractor.
const reasonNoExtractor = "no extractor path"

const tracerName = "github.com/ahrav/galley/internal/application"

// Assembler runs one evaluation pass over a document: it walks the catalog
// in order, resolves each criterion's extractor, evaluates the value, and
// records a verdict. Per-criterion failures become skipped verdicts; the
// report is returned whole or not at all.
type Assembler struct {
	catalog   *Catalog
	resolver  *Resolver
	evaluator *Evaluator

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics ports.MetricsCollector
	memoize bool
	now     func() time.Time
	runID   func() string
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithLogger sets the logger used for per-criterion diagnostics.
func WithLogger(l *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) AssemblerOption {
	return func(a *Assembler) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithMetrics records verdict counts and pass latency through m.
func WithMetrics(m ports.MetricsCollector) AssemblerOption {
	return func(a *Assembler) { a.metrics = m }
}

// WithMemoization shares provider results across the criteria of one pass.
// Nothing is retained between passes.
func WithMemoization(enabled bool) AssemblerOption {
	return func(a *Assembler) { a.memoize = enabled }
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRunIDFunc sets the generator for report run ids.
func WithRunIDFunc(f func() string) AssemblerOption {
	return func(a *Assembler) {
		if f != nil {
			a.runID = f
		}
	}
}

// NewAssembler creates an Assembler for the catalog.
func NewAssembler(
	catalog *Catalog,
	resolver *Resolver,
	evaluator *Evaluator,
	opts ...AssemblerOption,
) (*Assembler, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator cannot be nil")
	}

	a := &Assembler{
		catalog:   catalog,
		resolver:  resolver,
		evaluator: evaluator,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		runID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Catalog returns the catalog the assembler evaluates.
func (a *Assembler) Catalog() *Catalog { return a.catalog }

// Run evaluates every criterion against the document at docPath.
// The only error is context cancellation, in which case no report is returned.
func (a *Assembler) Run(ctx context.Context, docPath string) (domain.Report, error) {
	ctx, span := a.tracer.Start(ctx, "galley.report",
		trace.WithAttributes(
			attribute.String("document", docPath),
			attribute.Int("criteria", a.catalog.Len()),
			attribute.Bool("memoize", a.memoize),
		),
	)
	defer span.End()

	start := time.Now()
	var memo *Memo
	if a.memoize {
		memo = NewMemo()
	}

	builder := domain.NewReportBuilder(a.runID(), docPath, a.catalog.Len())
	for _, c := range a.catalog.criteria {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "canceled")
			return domain.Report{}, fmt.Errorf("evaluate %s: %w", docPath, err)
		}

		v := a.evaluateOne(ctx, docPath, c, memo)
		if err := builder.Add(c.Meta().ID, v); err != nil {
			// Unreachable for a validated catalog.
			span.RecordError(err)
			return domain.Report{}, err
		}
	}
	report := builder.Build(a.now())

	summary := report.Summary()
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("verdicts.ok", summary.ByStatus[domain.StatusOK]),
		attribute.Int("verdicts.skipped", summary.ByStatus[domain.StatusSkipped]),
	)
	if a.metrics != nil {
		a.metrics.RecordLatency("report_pass", time.Since(start), map[string]string{"memoize": fmt.Sprint(a.memoize)})
	}
	a.logger.InfoContext(ctx, "report complete",
		"document", docPath,
		"run_id", report.RunID,
		"ok", summary.ByStatus[domain.StatusOK],
		"skipped", summary.ByStatus[domain.StatusSkipped],
		"duration", time.Since(start),
	)
	return report, nil
}

func (a *Assembler) evaluateOne(ctx context.Context, docPath string, c domain.Criterion, memo *Memo) domain.Verdict {
	meta := c.Meta()
	ctx, span := a.tracer.Start(ctx, "galley.criterion",
		trace.WithAttributes(
			attribute.String("criterion.id", meta.ID),
			attribute.String("criterion.kind", string(c.Kind())),
			attribute.String("criterion.extractor", meta.Extractor.String()),
		),
	)
	defer span.End()

	v := a.verdictFor(ctx, docPath, c, memo)

	span.SetAttributes(attribute.String("verdict.status", string(v.Status())))
	if reason, skipped := v.Reason(); skipped {
		span.AddEvent("criterion.skipped", trace.WithAttributes(attribute.String("reason", reason)))
		a.logger.DebugContext(ctx, "criterion skipped",
			"criterion", meta.ID,
			"extractor", meta.Extractor.String(),
			"reason", reason,
		)
	}
	if a.metrics != nil {
		a.metrics.RecordCounter("verdicts_total", 1, map[string]string{
			"criterion": meta.ID,
			"status":    string(v.Status()),
		})
	}
	return v
}

func (a *Assembler) verdictFor(ctx context.Context, docPath string, c domain.Criterion, memo *Memo) domain.Verdict {
	ref := c.Meta().Extractor
	if ref.IsEmpty() {
		return domain.Skip(reasonNoExtractor)
	}

	value, err := a.resolver.ResolveCached(ctx, docPath, ref, memo)
	if err != nil {
		return domain.Skip(err.Error())
	}
	return a.evaluator.Evaluate(ctx, c, value)
}
