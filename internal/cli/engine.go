package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ahrav/galley/infrastructure/cache"
	"github.com/ahrav/galley/infrastructure/judge"
	"github.com/ahrav/galley/infrastructure/llm"
	"github.com/ahrav/galley/infrastructure/middleware"
	"github.com/ahrav/galley/infrastructure/pdf"
	"github.com/ahrav/galley/internal/application"
	"github.com/ahrav/galley/internal/config"
	"github.com/ahrav/galley/internal/ports"
)

// errNoDocuments is returned when the arguments name no PDF.
var errNoDocuments = errors.New("no PDF documents found")

// engine is the wired evaluation stack for one invocation.
type engine struct {
	assembler *application.Assembler
	metrics   *middleware.PrometheusMetrics
}

// loadCatalog returns the configured catalog restricted to ids when given.
func loadCatalog(cfg *config.Config, ids []string) (*application.Catalog, error) {
	catalog := application.DefaultCatalog()
	if cfg.Engine.CatalogFile != "" {
		loader, err := application.NewCatalogLoader()
		if err != nil {
			return nil, err
		}
		if catalog, err = loader.LoadFromFile(cfg.Engine.CatalogFile); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", cfg.Engine.CatalogFile, err)
		}
	}
	if len(ids) == 0 {
		return catalog, nil
	}
	return catalog.Subset(ids...)
}

// newLLMClient builds a client for provider with the shared llm middleware.
// A missing API key is reported as llm.ErrEmptyAPIKey.
func (a *app) newLLMClient(provider, model string, timeout time.Duration, metrics ports.MetricsCollector) (ports.LLMClient, error) {
	lc := a.cfg.LLM
	chain := llm.Chain(llm.ChainConfig{
		Provider:          provider,
		Timeout:           timeout,
		MaxRetries:        lc.MaxRetries,
		RequestsPerSecond: lc.RequestsPerSecond,
		Burst:             lc.Burst,
		CircuitFailures:   lc.CircuitFailures,
		CircuitCooldown:   lc.CircuitCooldown,
		Metrics:           metrics,
		Tracing:           true,
	})
	baseURL := ""
	if provider == lc.Provider {
		baseURL = lc.BaseURL
	}
	return a.newClient(provider, llm.ClientConfig{
		APIKey:     llm.APIKeyFromEnv(provider),
		Model:      model,
		BaseURL:    baseURL,
		Middleware: chain,
	})
}

// newJudge builds the qualitative judge. It returns nil, without error,
// when judging is disabled or no API key is available; qualitative
// criteria are then skipped.
func (a *app) newJudge(metrics ports.MetricsCollector) (ports.Judge, error) {
	cfg := a.cfg
	if !cfg.Judge.Enabled {
		a.logger.Info("LLM judge disabled, qualitative criteria will be skipped")
		return nil, nil
	}

	client, err := a.newLLMClient(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.Timeout, metrics)
	if errors.Is(err, llm.ErrEmptyAPIKey) {
		a.logger.Warn("no API key for LLM provider, qualitative criteria will be skipped",
			"provider", cfg.LLM.Provider)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	opts := []judge.Option{
		judge.WithTemperature(cfg.Judge.Temperature),
		judge.WithMaxTokens(cfg.Judge.MaxTokens),
		judge.WithMaxExcerpt(cfg.Judge.MaxExcerpt),
		judge.WithLogger(a.logger),
	}
	// Catalog criteria name OpenAI models; other providers, and an explicit
	// model choice, override them.
	if cfg.LLM.Model != "" || cfg.LLM.Provider != llm.ProviderOpenAI {
		opts = append(opts, judge.WithModel(client.GetModel()))
	}
	if !cfg.Judge.DisableCache {
		dir, err := judgeCacheDir(cfg.Judge.CacheDir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, judge.WithCache(cache.NewMemoryDiskCache(time.Hour, dir, cfg.Judge.CacheTTL), cfg.Judge.CacheTTL))
	}
	j, err := judge.New(client, opts...)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func judgeCacheDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache directory: %w", err)
	}
	return filepath.Join(base, "galley", "judge"), nil
}

// providerOptions maps config onto the PDF provider settings.
func providerOptions(cfg *config.Config) pdf.ProviderOptions {
	refs := []pdf.ReferencesOption{pdf.WithRecentYears(cfg.References.RecentYears)}
	if cfg.References.ReferenceYear > 0 {
		refs = append(refs, pdf.WithReferenceYear(cfg.References.ReferenceYear))
	}
	return pdf.ProviderOptions{
		FirstNPages:  cfg.Fonts.FirstNPages,
		AllowedFonts: cfg.Fonts.Allowed,
		References:   refs,
	}
}

// buildEngine wires providers, catalog, judge and assembler. useLLM false
// leaves qualitative criteria without a judge.
func (a *app) buildEngine(ids []string, useLLM bool) (*engine, error) {
	cfg := a.cfg
	metrics := middleware.NewPrometheusMetrics()

	registry, err := application.NewProviderRegistry()
	if err != nil {
		return nil, err
	}
	if err := pdf.RegisterProviders(registry, a.loader, providerOptions(cfg)); err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(cfg, ids)
	if err != nil {
		return nil, err
	}

	evalOpts := []application.EvaluatorOption{application.WithEvaluatorLogger(a.logger)}
	if useLLM {
		j, err := a.newJudge(metrics)
		if err != nil {
			return nil, err
		}
		if j != nil {
			evalOpts = append(evalOpts, application.WithJudge(j))
		}
	}

	resolver, err := application.NewResolver(registry,
		application.WithResolverLogger(a.logger),
		application.WithResolverMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	assembler, err := application.NewAssembler(catalog, resolver, application.NewEvaluator(evalOpts...),
		application.WithLogger(a.logger),
		application.WithMetrics(metrics),
		application.WithMemoization(cfg.Engine.Memoize),
	)
	if err != nil {
		return nil, err
	}
	return &engine{assembler: assembler, metrics: metrics}, nil
}

// collectPDFs expands args into PDF paths. Directories contribute their
// *.pdf files, non-recursively, in name order.
func collectPDFs(args []string) ([]string, error) {
	var docs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			docs = append(docs, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		slices.Sort(found)
		docs = append(docs, found...)
	}
	if len(docs) == 0 {
		return nil, errNoDocuments
	}
	return docs, nil
}

// outputPath returns dir/<stem><suffix> for doc, or doc's own directory
// when dir is empty.
func outputPath(doc, dir, suffix string) string {
	base := filepath.Base(doc)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(doc)
	}
	return filepath.Join(dir, stem+suffix)
}
