// Package config holds the galley runtime configuration: defaults, viper
// loading from file and GALLEY_* environment variables, and validation.
//
// Precedence, highest first: CLI flags bound by the caller, environment,
// config file ($HOME/.galley/config.yaml or --config), Default().
package config

import (
	"time"

	"github.com/ahrav/galley/internal/application"
)

// EnvPrefix prefixes every environment override, e.g. GALLEY_LLM_PROVIDER.
const EnvPrefix = "GALLEY"

// Config is the complete runtime configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Judge      JudgeConfig      `yaml:"judge" mapstructure:"judge"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Fonts      FontsConfig      `yaml:"fonts" mapstructure:"fonts"`
	References ReferencesConfig `yaml:"references" mapstructure:"references"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig configures the client used by the qualitative judge.
type LLMConfig struct {
	// Provider is one of openai, anthropic or google.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required,oneof=openai anthropic google"`
	// Model overrides the provider default model.
	Model   string        `yaml:"model" mapstructure:"model"`
	BaseURL string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	CircuitFailures   int           `yaml:"circuit_failures" mapstructure:"circuit_failures" validate:"gte=0"`
	CircuitCooldown   time.Duration `yaml:"circuit_cooldown" mapstructure:"circuit_cooldown" validate:"gte=0"`
}

// JudgeConfig configures qualitative criteria evaluation.
type JudgeConfig struct {
	// Enabled turns qualitative evaluation on. When off those criteria skip.
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=1"`
	// MaxExcerpt bounds the characters of manuscript text sent per criterion.
	MaxExcerpt   int           `yaml:"max_excerpt" mapstructure:"max_excerpt" validate:"gte=1"`
	CacheDir     string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	CacheTTL     time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl" validate:"gte=0"`
	DisableCache bool          `yaml:"disable_cache" mapstructure:"disable_cache"`
}

// ReviewConfig configures the whole-checklist LLM review.
type ReviewConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider" validate:"required,oneof=openai anthropic google"`
	Model     string        `yaml:"model" mapstructure:"model"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=1"`
	MaxChars  int           `yaml:"max_chars" mapstructure:"max_chars" validate:"gte=1000"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// EngineConfig configures evaluation passes.
type EngineConfig struct {
	// Memoize shares provider results between the criteria of one pass.
	Memoize bool `yaml:"memoize" mapstructure:"memoize"`
	// CatalogFile replaces the built-in catalog with a YAML catalog.
	CatalogFile string `yaml:"catalog_file" mapstructure:"catalog_file"`
	// Concurrency is the number of documents evaluated in parallel.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=64"`
	// FailOn sets the lowest failing severity that makes check exit non-zero.
	FailOn string `yaml:"fail_on" mapstructure:"fail_on" validate:"oneof=error warning info never"`
}

// FontsConfig configures the font provider.
type FontsConfig struct {
	FirstNPages int      `yaml:"first_n_pages" mapstructure:"first_n_pages" validate:"gte=1"`
	Allowed     []string `yaml:"allowed" mapstructure:"allowed" validate:"min=1,dive,required"`
}

// ReferencesConfig configures the references provider.
type ReferencesConfig struct {
	RecentYears int `yaml:"recent_years" mapstructure:"recent_years" validate:"gte=1,lte=100"`
	// ReferenceYear pins the year "recent" is measured from. Zero uses the
	// current year.
	ReferenceYear int `yaml:"reference_year" mapstructure:"reference_year" validate:"omitempty,gte=1900,lte=2200"`
}

// MetricsConfig configures Prometheus output.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile path written after each run.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=text json"`
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 2,
			Burst:             2,
			CircuitFailures:   5,
			CircuitCooldown:   30 * time.Second,
		},
		Judge: JudgeConfig{
			Enabled:     true,
			Temperature: 0,
			MaxTokens:   512,
			MaxExcerpt:  6000,
			CacheTTL:    7 * 24 * time.Hour,
		},
		Review: ReviewConfig{
			Provider:  "google",
			MaxTokens: 8192,
			MaxChars:  200_000,
			Timeout:   5 * time.Minute,
		},
		Engine: EngineConfig{
			Memoize:     true,
			Concurrency: 1,
			FailOn:      "error",
		},
		Fonts: FontsConfig{
			FirstNPages: 5,
			Allowed:     append([]string(nil), application.AllowedFonts...),
		},
		References: ReferencesConfig{
			RecentYears: 5,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
