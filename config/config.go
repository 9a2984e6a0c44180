// Package config holds the audit service configuration: compiled-in
// defaults, an optional YAML file, and a handful of environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Default configuration values. The fetch timeout and body cap follow the
// limits the service has always run with; the semantic values are tuned so
// a typical article-length page stays well inside the vectorization budget.
const (
	DefaultPort         = "8082"
	DefaultFetchTimeout = 20 * time.Second

	// DefaultMaxBodyBytes caps how much of a response body is read.
	// 5MB is enough for any sane HTML page while bounding memory per request.
	DefaultMaxBodyBytes = 5 * 1024 * 1024

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	DefaultTopKeywords      = 20
	DefaultBodyPreviewChars = 5000
	DefaultParagraphWords   = 2000
	DefaultLinkDetailCap    = 20

	DefaultLinkProbeTimeout     = 5 * time.Second
	DefaultLinkProbeConcurrency = 10
	DefaultHostCacheTTL         = 10 * time.Minute

	DefaultSimilarityThreshold = 0.72
	DefaultMaxSemanticChars    = 10000
	DefaultTopPhrases          = 10
	DefaultEntitiesPerCategory = 5

	// AppName is used for the XDG config directory and the config file name.
	AppName           = "seo-audit"
	DefaultConfigFile = "seo-audit.yml"
)

// DefaultStopwords are excluded from keyword and phrase extraction.
var DefaultStopwords = []string{
	"the", "and", "to", "of", "a", "in", "for", "is", "on", "with", "that",
	"as", "by", "this", "an", "be", "or", "it", "are", "at", "from", "was",
	"but", "not", "have", "has", "you", "your", "our", "their", "they", "we",
	"he", "she", "them", "his", "her", "its",
}

// DefaultTagWeights rank page regions by SEO importance when weighting
// phrase occurrences. Title is heaviest, body copy lightest.
var DefaultTagWeights = map[string]float64{
	"title":  2.0,
	"h1":     1.8,
	"h2":     1.5,
	"h3":     1.2,
	"b":      1.1,
	"strong": 1.1,
	"p":      1.0,
	"li":     1.0,
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Audit    AuditConfig    `yaml:"audit"`
	Semantic SemanticConfig `yaml:"semantic"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener and service-level knobs.
type ServerConfig struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	// RateLimit is requests per second per client IP; Burst is the bucket size.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     float64 `yaml:"burst"`
}

// FetchConfig bounds the outbound page fetch.
type FetchConfig struct {
	Timeout      Duration `yaml:"timeout"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	UserAgent    string   `yaml:"user_agent"`
}

// AuditConfig controls the report-building pipeline.
type AuditConfig struct {
	TopKeywords      int      `yaml:"top_keywords"`
	Stopwords        []string `yaml:"stopwords"`
	BodyPreviewChars int      `yaml:"body_preview_chars"`
	ParagraphWords   int      `yaml:"paragraph_words"`
	LinkDetailCap    int      `yaml:"link_detail_cap"`

	// ResolveLinkHosts enables the network probe that follows each link's
	// redirects before classifying it as internal or external. Off by
	// default: classification then uses the href's own host, which keeps
	// reports deterministic and audits fast.
	ResolveLinkHosts     bool     `yaml:"resolve_link_hosts"`
	LinkProbeTimeout     Duration `yaml:"link_probe_timeout"`
	LinkProbeConcurrency int      `yaml:"link_probe_concurrency"`
	HostCacheTTL         Duration `yaml:"host_cache_ttl"`
}

// SemanticConfig controls the phrase clustering pass.
type SemanticConfig struct {
	SimilarityThreshold float64            `yaml:"similarity_threshold"`
	MaxChars            int                `yaml:"max_chars"`
	TopPhrases          int                `yaml:"top_phrases"`
	EntitiesPerCategory int                `yaml:"entities_per_category"`
	TagWeights          map[string]float64 `yaml:"tag_weights"`

	// Provider selects the vectorizer: "local" (deterministic, in-process)
	// or "ollama" (remote embedding API).
	Provider    string `yaml:"provider"`
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a configuration populated with the compiled-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      DefaultPort,
			DataDir:   "data",
			RateLimit: 2,
			Burst:     5,
		},
		Fetch: FetchConfig{
			Timeout:      DurationFrom(DefaultFetchTimeout),
			MaxBodyBytes: DefaultMaxBodyBytes,
			UserAgent:    DefaultUserAgent,
		},
		Audit: AuditConfig{
			TopKeywords:          DefaultTopKeywords,
			Stopwords:            append([]string(nil), DefaultStopwords...),
			BodyPreviewChars:     DefaultBodyPreviewChars,
			ParagraphWords:       DefaultParagraphWords,
			LinkDetailCap:        DefaultLinkDetailCap,
			ResolveLinkHosts:     false,
			LinkProbeTimeout:     DurationFrom(DefaultLinkProbeTimeout),
			LinkProbeConcurrency: DefaultLinkProbeConcurrency,
			HostCacheTTL:         DurationFrom(DefaultHostCacheTTL),
		},
		Semantic: SemanticConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			MaxChars:            DefaultMaxSemanticChars,
			TopPhrases:          DefaultTopPhrases,
			EntitiesPerCategory: DefaultEntitiesPerCategory,
			TagWeights:          copyWeights(DefaultTagWeights),
			Provider:            "local",
			OllamaURL:           "http://localhost:11434/api/embeddings",
			OllamaModel:         "nomic-embed-text",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file if one is
// found, then environment overrides. An explicitly given path that does not
// exist is an error; an absent default-location file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SEO_AUDIT_CONFIG")
	}
	found := FindConfigFile(path)
	if path != "" && found == "" {
		return nil, fmt.Errorf("config file %s not found", path)
	}
	if found != "" {
		data, err := os.ReadFile(found)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", found, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for the configuration file:
// the explicit path, then the working directory, then the XDG config dir.
// Returns "" when nothing is found.
func FindConfigFile(path string) string {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(xdg.ConfigHome, AppName, DefaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Server.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Fetch.Timeout.Duration <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be positive, got %d", c.Fetch.MaxBodyBytes)
	}
	if t := c.Semantic.SimilarityThreshold; t <= 0 || t >= 1 {
		return fmt.Errorf("semantic.similarity_threshold must be in (0, 1), got %g", t)
	}
	if c.Audit.LinkProbeConcurrency <= 0 {
		return fmt.Errorf("audit.link_probe_concurrency must be positive, got %d", c.Audit.LinkProbeConcurrency)
	}
	return nil
}

func copyWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
