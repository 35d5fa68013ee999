package application

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/galley/internal/domain"
)

// DocumentResult is the outcome of one document in a batch.
type DocumentResult struct {
	Document string
	Report   domain.Report
	Err      error
}

// BatchRunner evaluates several documents. Each document gets an
// independent pass with its own memo; no state crosses documents.
type BatchRunner struct {
	assembler   *Assembler
	concurrency int
	logger      *slog.Logger
}

// NewBatchRunner creates a runner evaluating up to concurrency documents at
// once. Values below one run documents sequentially.
func NewBatchRunner(a *Assembler, concurrency int, logger *slog.Logger) *BatchRunner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{assembler: a, concurrency: concurrency, logger: logger}
}

// Run evaluates docs and returns results in input order. A failed document
// does not stop the others; its error is recorded in its result. The
// returned error is non-nil only when ctx is canceled.
func (b *BatchRunner) Run(ctx context.Context, docs []string) ([]DocumentResult, error) {
	results := make([]DocumentResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = DocumentResult{Document: doc, Err: err}
				return err
			}
			report, err := b.assembler.Run(gctx, doc)
			results[i] = DocumentResult{Document: doc, Report: report, Err: err}
			if err != nil {
				b.logger.WarnContext(gctx, "document failed", "document", doc, "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
