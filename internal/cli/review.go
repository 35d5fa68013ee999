package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/galley/infrastructure/judge"
	"github.com/ahrav/galley/infrastructure/middleware"
	"github.com/ahrav/galley/infrastructure/pdf"
	"github.com/ahrav/galley/internal/application"
)

type reviewOptions struct {
	outputDir string
	stdout    bool
}

func newReviewCmd(a *app) *cobra.Command {
	var opts reviewOptions
	cmd := &cobra.Command{
		Use:   "review <pdf|dir>...",
		Short: "Ask a language model for a whole-manuscript checklist review",
		Long: `review sends the extracted manuscript text, its page sizes and the checklist
to a language model (Gemini by default) and writes the markdown report it
returns to <name>.review.md beside each PDF.

Unlike check, review produces a free-form report rather than per-item verdicts.
The API key is read from GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReview(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.String("provider", "", "LLM provider: google, openai, anthropic (default from config: google)")
	f.String("model", "", "LLM model (default: provider default)")
	f.String("catalog", "", "YAML catalog file replacing the built-in checklist")
	f.StringVar(&opts.outputDir, "output-dir", "", "write reviews into this directory instead of beside each PDF")
	f.BoolVar(&opts.stdout, "stdout", false, "print reviews instead of writing files")
	return cmd
}

func (a *app) runReview(cmd *cobra.Command, args []string, opts reviewOptions) error {
	docs, err := collectPDFs(args)
	if err != nil {
		return err
	}
	catalog, err := loadCatalog(a.cfg, nil)
	if err != nil {
		return err
	}

	rc := a.cfg.Review
	metrics := middleware.NewPrometheusMetrics()
	client, err := a.newLLMClient(rc.Provider, rc.Model, rc.Timeout, metrics)
	if err != nil {
		return fmt.Errorf("create %s client: %w", rc.Provider, err)
	}
	reviewer, err := judge.NewReviewer(client,
		judge.WithReviewMaxTokens(rc.MaxTokens),
		judge.WithReviewMaxChars(rc.MaxChars),
		judge.WithReviewLogger(a.logger),
	)
	if err != nil {
		return err
	}
	checklist := checklistItems(catalog)

	var failed int
	for _, doc := range docs {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if err := a.reviewOne(cmd, reviewer, checklist, doc, opts); err != nil {
			fmt.Fprintf(a.errOut, "%s: %v\n", doc, err)
			failed++
		}
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics textfile not written", "error", err)
		}
	}
	if failed > 0 {
		return &ExitCodeError{Code: ExitDocumentFailed, Err: fmt.Errorf("%d of %d reviews failed", failed, len(docs))}
	}
	return nil
}

func (a *app) reviewOne(cmd *cobra.Command, reviewer *judge.Reviewer, checklist []judge.ChecklistItem, path string, opts reviewOptions) error {
	doc, err := a.loader.Load(cmd.Context(), path)
	if err != nil {
		return err
	}
	sizes := make([]judge.PageSize, len(doc.Pages))
	for i, p := range doc.Pages {
		sizes[i] = judge.PageSize{WidthCM: p.Width * pdf.PtToCM, HeightCM: p.Height * pdf.PtToCM}
	}

	report, err := reviewer.Review(cmd.Context(), judge.ReviewInput{
		Document:  path,
		Text:      doc.Text(),
		PageSizes: sizes,
		Checklist: checklist,
	})
	if err != nil {
		return err
	}

	if opts.stdout {
		_, err := fmt.Fprint(a.out, report)
		return err
	}
	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	out := outputPath(path, opts.outputDir, ".review.md")
	if err := os.WriteFile(out, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write review: %w", err)
	}
	a.logger.Info("review written", "document", path, "path", out)
	return nil
}

func checklistItems(c *application.Catalog) []judge.ChecklistItem {
	items := make([]judge.ChecklistItem, 0, c.Len())
	for _, crit := range c.All() {
		meta := crit.Meta()
		items = append(items, judge.ChecklistItem{
			ID:          meta.ID,
			Severity:    string(meta.Severity),
			Kind:        string(crit.Kind()),
			Description: meta.Description,
		})
	}
	return items
}
