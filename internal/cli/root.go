// Package cli implements the galley command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ahrav/galley/infrastructure/llm"
	"github.com/ahrav/galley/infrastructure/pdf"
	"github.com/ahrav/galley/internal/config"
	"github.com/ahrav/galley/internal/ports"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// Process exit codes.
const (
	ExitOK             = 0
	ExitError          = 1
	ExitPolicyFailed   = 2
	ExitDocumentFailed = 3
)

// ExitCodeError carries a non-zero exit status out of a command.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

// clientFactory builds the LLM client for a provider.
type clientFactory func(provider string, cfg llm.ClientConfig) (ports.LLMClient, error)

func defaultClientFactory(provider string, cfg llm.ClientConfig) (ports.LLMClient, error) {
	return llm.NewClient(provider, cfg)
}

// app holds state shared by the commands of one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfgFile   string
	logFormat string
	verbose   bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger

	loader    pdf.Loader
	newClient clientFactory
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut, newClient: defaultClientFactory}
}

// flagKeys maps command-line flags onto configuration keys. Flags set on
// the command line take precedence over environment and file values.
var flagKeys = map[string]string{
	"log-format":   "log.format",
	"llm-provider": "llm.provider",
	"llm-model":    "llm.model",
	"memoize":      "engine.memoize",
	"concurrency":  "engine.concurrency",
	"catalog":      "engine.catalog_file",
	"fail-on":      "engine.fail_on",
	"metrics-file": "metrics.textfile",
	"provider":     "review.provider",
	"model":        "review.model",
}

// NewRootCmd builds the command tree writing to out and errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	return newRootCmd(newApp(out, errOut))
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "galley",
		Short: "Editorial checklist screening for manuscript PDFs",
		Long: `galley screens a submitted manuscript PDF against a journal's editorial
checklist: page geometry, fonts, section structure, references and
qualitative items judged by a language model.

Every checklist item receives a verdict. A failing item is labelled with its
severity (info, warning, error); an item that could not be evaluated is
skipped with a reason. One item's failure never stops the others.

Configuration precedence, highest first:
  1. CLI flags
  2. Environment variables (GALLEY_*, e.g. GALLEY_LLM_PROVIDER)
  3. Config file (~/.galley/config.yaml or --config)
  4. Built-in defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.galley/config.yaml)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newCheckCmd(a),
		newReviewCmd(a),
		newCatalogCmd(a),
		newConfigCmd(a),
		newVersionCmd(a),
	)
	return root
}

// annotationNoConfig marks commands that run without loading configuration.
const annotationNoConfig = "galley/no-config"

// setup loads configuration and builds the logger for the running command.
func (a *app) setup(cmd *cobra.Command) error {
	if cmd.Annotations[annotationNoConfig] == "true" {
		a.logger = newLogger(a.errOut, "text", "info")
		return nil
	}

	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v, a.cfg = v, cfg

	level := cfg.Log.Level
	if a.verbose {
		level = "debug"
	}
	a.logger = newLogger(a.errOut, cfg.Log.Format, level)
	slog.SetDefault(a.logger)

	if a.loader == nil {
		a.loader = pdf.NewReaderLoader(a.logger)
	}
	return nil
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute runs the CLI with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	return exitCode(root.ExecuteContext(ctx), os.Stderr)
}

func exitCode(err error, errOut io.Writer) int {
	if err == nil {
		return ExitOK
	}
	var ec *ExitCodeError
	if errors.As(err, &ec) {
		if ec.Err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", ec.Err)
		}
		return ec.Code
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return ExitError
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, err := fmt.Fprintf(a.out, "galley %s\n", Version)
			return err
		},
	}
}
