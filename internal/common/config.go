package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Search      SearchConfig    `toml:"search"`
	LLM         LLMConfig       `toml:"llm"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Categories  []CategoryRule  `toml:"categories"`
	Retention   RetentionConfig `toml:"retention"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // delete database on startup for clean test runs
}

// SearchConfig selects and configures the search collaborator.
type SearchConfig struct {
	Mode string `toml:"mode" validate:"oneof=elastic bleve disabled"` // "elastic", "bleve", or "disabled"

	// Elastic settings
	Addr  string `toml:"addr"`
	Index string `toml:"index"`

	// Bleve settings
	IndexPath string `toml:"index_path"` // pre-built index directory

	// Collections maps a category to the index partitions queried for
	// it, in priority order. Retrieval falls back to an unfiltered
	// query only when the category-specific query yields nothing.
	Collections map[string][]string `toml:"collections"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig selects the default AI provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "claude" or "gemini"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`       // default: "claude-sonnet-4-20250514"
	MaxTokens   int     `toml:"max_tokens"`  // default: 4096
	Timeout     string  `toml:"timeout"`     // duration string, default: "2m"
	RateLimit   string  `toml:"rate_limit"`  // minimum spacing between calls, default: "1s"
	Temperature float32 `toml:"temperature"` // default: 0 for deterministic extraction
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default: "gemini-2.0-flash"
	Timeout     string  `toml:"timeout"`    // duration string, default: "2m"
	RateLimit   string  `toml:"rate_limit"` // default: "4s" for 15 RPM
	Temperature float32 `toml:"temperature"`
}

// PipelineConfig tunes the answer generation pipeline.
type PipelineConfig struct {
	// Concurrency bounds the worker pool processing questions, which
	// also bounds concurrent calls to the rate-limited collaborators.
	Concurrency int `toml:"concurrency" validate:"min=1"`

	// ContextBudget is the maximum combined size, in characters, of
	// evidence handed to the synthesizer for one question.
	ContextBudget int `toml:"context_budget" validate:"min=200"`

	// TopK caps snippets per retrieval query.
	TopK int `toml:"top_k" validate:"min=1"`

	// MinScore drops retrieved snippets below this relevance score.
	MinScore float64 `toml:"min_score"`

	// SimilarityThreshold admits near-duplicate questions into an
	// existing consistency group (token-set Dice coefficient).
	SimilarityThreshold float64 `toml:"similarity_threshold" validate:"min=0,max=1"`

	// MaxSynthesisRetries bounds retries after an LLM failure.
	MaxSynthesisRetries int `toml:"max_synthesis_retries" validate:"min=0"`

	// SynthesisBackoff is the wait before a synthesis retry.
	SynthesisBackoff string `toml:"synthesis_backoff"`

	// DomainVocabulary is the lexicon used by the out-of-domain check:
	// a question sharing no token with it, combined with zero evidence,
	// is declined rather than marked unanswerable.
	DomainVocabulary []string `toml:"domain_vocabulary"`
}

// CategoryRule routes questions whose text contains one of the
// keywords to a category. Rules are data, not control flow: adding a
// category is a config change. Higher priority wins ties; children
// override an inherited parent category only with a rule of at least
// the inherited priority.
type CategoryRule struct {
	Category string   `toml:"category" validate:"required"`
	Priority int      `toml:"priority"`
	Keywords []string `toml:"keywords" validate:"min=1"`
}

// RetentionConfig schedules the published-artifact sweep.
type RetentionConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // cron format
	MaxAge   string `toml:"max_age"`  // duration string, e.g. "720h"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings belong in respondeo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Search: SearchConfig{
			Mode:  "bleve",
			Addr:  "http://localhost:9200",
			Index: "ddq-corpus",
			Collections: map[string][]string{
				"fundraising":    {"fundraising", "marketing"},
				"esg":            {"esg", "policies"},
				"pre_launch":     {"pre_launch", "offering"},
				"post_launch":    {"post_launch", "operations"},
				"governing_docs": {"governing_docs", "legal"},
				"general":        {"policies", "operations"},
			},
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderClaude,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "2m",
			RateLimit:   "4s",
			Temperature: 0,
		},
		Pipeline: PipelineConfig{
			Concurrency:         4,
			ContextBudget:       6000,
			TopK:                5,
			MinScore:            0.4,
			SimilarityThreshold: 0.85,
			MaxSynthesisRetries: 1,
			SynthesisBackoff:    "2s",
			DomainVocabulary:    DefaultDomainVocabulary(),
		},
		Categories: DefaultCategoryRules(),
		Retention: RetentionConfig{
			Enabled:  false,
			Schedule: "0 0 3 * * *", // daily at 03:00
			MaxAge:   "720h",        // 30 days
		},
	}
}

// DefaultCategoryRules returns the built-in routing table. Keyword
// priority order breaks ties deterministically.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: "esg", Priority: 50, Keywords: []string{"esg", "environmental", "sustainability", "social", "governance policy", "responsible investment", "carbon"}},
		{Category: "governing_docs", Priority: 40, Keywords: []string{"governing", "lpa", "limited partnership agreement", "articles", "bylaws", "subscription agreement", "side letter", "ppm"}},
		{Category: "fundraising", Priority: 30, Keywords: []string{"fundraising", "capital raise", "investor relations", "commitment", "subscription", "placement"}},
		{Category: "pre_launch", Priority: 20, Keywords: []string{"pre-launch", "prior to launch", "inception", "seed", "track record", "formation"}},
		{Category: "post_launch", Priority: 20, Keywords: []string{"post-launch", "ongoing", "operations", "reporting", "valuation", "nav", "risk process"}},
	}
}

// DefaultDomainVocabulary returns the lexicon used to tell off-topic
// questions apart from on-topic questions with missing evidence.
func DefaultDomainVocabulary() []string {
	return []string{
		"fund", "funds", "investor", "investors", "investment", "portfolio",
		"esg", "policy", "policies", "compliance", "governance", "risk",
		"valuation", "audit", "auditor", "custodian", "administrator",
		"lpa", "nav", "fee", "fees", "diligence",
		"launch", "strategy", "manager", "management", "fundraising",
		"subscription", "redemption", "reporting", "regulatory",
	}
}

// LoadFromFiles loads configuration from default values, then merges
// each file in order (later files override earlier ones), then applies
// environment overrides, then validates.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks structural constraints with the validator and the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, d := range []string{c.Claude.Timeout, c.Gemini.Timeout, c.Pipeline.SynthesisBackoff} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration %q in configuration: %w", d, err)
		}
	}

	if c.Retention.Enabled {
		if _, err := time.ParseDuration(c.Retention.MaxAge); err != nil {
			return fmt.Errorf("invalid retention.max_age %q: %w", c.Retention.MaxAge, err)
		}
	}
	return nil
}

// applyEnvOverrides applies RESPONDEO_* environment variables on top
// of file configuration.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("RESPONDEO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("RESPONDEO_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("RESPONDEO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("RESPONDEO_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("RESPONDEO_SEARCH_MODE"); v != "" {
		config.Search.Mode = v
	}
	if v := os.Getenv("RESPONDEO_SEARCH_ADDR"); v != "" {
		config.Search.Addr = v
	}
	if v := os.Getenv("RESPONDEO_LLM_PROVIDER"); v != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(v))
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("RESPONDEO_CLAUDE_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("RESPONDEO_GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
}

// ApplyFlagOverrides applies command-line overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key with KV-first resolution order:
// KV store, then the config fallback value.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	if kvStorage != nil {
		if value, err := kvStorage.Get(ctx, name); err == nil && value != "" {
			return value, nil
		}
	}
	if configFallback != "" {
		return configFallback, nil
	}
	return "", fmt.Errorf("API key %q not found in KV storage or configuration", name)
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
