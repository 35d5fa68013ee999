package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/galley/infrastructure/render"
	"github.com/ahrav/galley/internal/application"
	"github.com/ahrav/galley/internal/domain"
)

type checkOptions struct {
	output    string
	checks    []string
	noLLM     bool
	outputDir string
}

func newCheckCmd(a *app) *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check <pdf|dir>...",
		Short: "Evaluate manuscripts against the editorial checklist",
		Long: `check runs one evaluation pass per document and prints a verdict for every
checklist item. Directories contribute the PDFs they contain.

Examples:
  galley check manuscript.pdf
  galley check submissions/ --output json --output-dir reports/
  galley check manuscript.pdf --checks L01W,T01 --no-llm
  galley check manuscript.pdf --llm-provider anthropic --fail-on warning`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", render.FormatText, "output format: "+strings.Join(render.Formats(), ", "))
	f.StringSliceVar(&opts.checks, "checks", nil, "comma-separated criterion ids to evaluate (default: all)")
	f.BoolVar(&opts.noLLM, "no-llm", false, "skip qualitative criteria instead of calling a language model")
	f.StringVar(&opts.outputDir, "output-dir", "", "write one report file per document into this directory")
	f.String("catalog", "", "YAML catalog file replacing the built-in checklist")
	f.String("llm-provider", "", "LLM provider for qualitative criteria: openai, anthropic, google")
	f.String("llm-model", "", "LLM model (default: provider default)")
	f.Bool("memoize", true, "share provider results between the criteria of one document")
	f.Int("concurrency", 1, "documents evaluated in parallel")
	f.String("fail-on", "error", "exit non-zero when a verdict reaches this severity: error, warning, info, never")
	f.String("metrics-file", "", "write Prometheus metrics to this node-exporter textfile")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string, opts checkOptions) error {
	renderer, err := render.New(opts.output)
	if err != nil {
		return err
	}
	docs, err := collectPDFs(args)
	if err != nil {
		return err
	}
	eng, err := a.buildEngine(opts.checks, !opts.noLLM)
	if err != nil {
		return err
	}
	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	a.logger.Debug("starting check",
		"documents", len(docs),
		"criteria", eng.assembler.Catalog().Len(),
		"concurrency", a.cfg.Engine.Concurrency,
		"memoize", a.cfg.Engine.Memoize)

	runner := application.NewBatchRunner(eng.assembler, a.cfg.Engine.Concurrency, a.logger)
	results, runErr := runner.Run(cmd.Context(), docs)

	failedDocs := 0
	var reports []domain.Report
	for _, res := range results {
		if res.Err != nil {
			if runErr == nil {
				fmt.Fprintf(a.errOut, "%s: %v\n", res.Document, res.Err)
			}
			failedDocs++
			continue
		}
		if err := a.emit(renderer, res.Report, opts.outputDir, len(docs) > 1); err != nil {
			return err
		}
		reports = append(reports, res.Report)
	}

	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := eng.metrics.WriteTextfile(path); err != nil {
			a.logger.Warn("metrics textfile not written", "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if failedDocs > 0 {
		return &ExitCodeError{Code: ExitDocumentFailed, Err: fmt.Errorf("%d of %d documents could not be evaluated", failedDocs, len(docs))}
	}
	if violated(reports, a.cfg.Engine.FailOn) {
		return &ExitCodeError{Code: ExitPolicyFailed}
	}
	return nil
}

// emit writes one report to stdout or, with dir set, to its own file.
func (a *app) emit(r render.Renderer, report domain.Report, dir string, multi bool) error {
	if tr, ok := r.(render.TextRenderer); ok && multi && dir == "" {
		tr.Header = true
		r = tr
	}
	if dir == "" {
		return r.Render(a.out, report)
	}

	path := outputPath(report.Document, dir, ".galley"+r.Extension())
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := r.Render(f, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	a.logger.Info("report written", "document", report.Document, "path", path)
	return nil
}

// violated reports whether any report has a failing verdict at or above the
// failOn severity. "never" disables the policy.
func violated(reports []domain.Report, failOn string) bool {
	if failOn == "never" {
		return false
	}
	threshold := domain.Severity(failOn)
	for _, r := range reports {
		if worst, ok := r.WorstSeverity(); ok && worst.Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}
