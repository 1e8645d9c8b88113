// Package config loads and validates scanner configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
// The keyword vocabulary, URL filter terms, and pacing constants are
// loaded once at startup and passed by reference; nothing mutates them
// afterwards.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	DB      DBConfig      `mapstructure:"db"`
	Search  SearchConfig  `mapstructure:"search"`
	PDF     PDFConfig     `mapstructure:"pdf"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScannerConfig governs the scan loop: vocabulary, filtering, pacing,
// and snippet bounds.
type ScannerConfig struct {
	Keywords         []string `mapstructure:"keywords"`
	URLFilterTerms   []string `mapstructure:"url_filter_terms"`
	MaxURLsPerCity   int      `mapstructure:"max_urls_per_city"`
	MaxSearchResults int      `mapstructure:"max_search_results"`
	RequestDelayMs   int      `mapstructure:"request_delay_ms"`
	SnippetContext   int      `mapstructure:"snippet_context_chars"`
	SnippetMaxLen    int      `mapstructure:"snippet_max_len"`
	DateWindowChars  int      `mapstructure:"date_window_chars"`
}

// HTTPConfig configures the outbound fetch client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// StoreConfig selects the job/result store implementation.
type StoreConfig struct {
	Provider string `mapstructure:"provider"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SearchConfig selects and configures the web-search provider.
type SearchConfig struct {
	Provider string `mapstructure:"provider"`
	Endpoint string `mapstructure:"endpoint"`
}

// PDFConfig toggles PDF text extraction.
type PDFConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PubSubConfig holds metadata for completion-event publishing.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scanner.keywords", defaultKeywords)
	v.SetDefault("scanner.url_filter_terms", defaultURLFilterTerms)
	v.SetDefault("scanner.max_urls_per_city", 15)
	v.SetDefault("scanner.max_search_results", 20)
	v.SetDefault("scanner.request_delay_ms", 1500)
	v.SetDefault("scanner.snippet_context_chars", 120)
	v.SetDefault("scanner.snippet_max_len", 300)
	v.SetDefault("scanner.date_window_chars", 500)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", defaultUserAgent)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("search.provider", "duckduckgo")
	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("pdf.enabled", true)
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Scanner.Keywords) == 0 {
		return fmt.Errorf("scanner.keywords must not be empty")
	}
	if len(c.Scanner.URLFilterTerms) == 0 {
		return fmt.Errorf("scanner.url_filter_terms must not be empty")
	}
	if c.Scanner.MaxURLsPerCity <= 0 {
		return fmt.Errorf("scanner.max_urls_per_city must be > 0")
	}
	if c.Scanner.RequestDelayMs < 0 {
		return fmt.Errorf("scanner.request_delay_ms must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Store.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when store.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	switch c.Search.Provider {
	case "duckduckgo", "noop":
	default:
		return fmt.Errorf("unknown search provider: %s", c.Search.Provider)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicID == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_id must be set when pubsub is enabled")
	}
	return nil
}

// RequestDelay returns the inter-request pause as a duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Scanner.RequestDelayMs) * time.Millisecond
}

// FetchTimeout returns the per-fetch deadline as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// defaultUserAgent mirrors a desktop Chrome identity; municipal portals
// routinely reject obvious bot agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// defaultKeywords is the sanitation-fleet vocabulary scanned for in
// council minutes.
var defaultKeywords = []string{
	"vac-truck", "vac truck", "vacuum truck",
	"garbage truck", "garbage collection",
	"refuse", "refuse collection", "refuse truck",
	"recycle", "recycling", "recycling truck",
	"sweeper", "street sweeper", "road sweeper",
	"solid waste", "roll-off", "sanitation vehicle", "waste collection",
}

// defaultURLFilterTerms indicate meeting minutes / agenda pages.
var defaultURLFilterTerms = []string{
	"minute", "agenda", "meeting", "council", "packet", "proceeding",
}
