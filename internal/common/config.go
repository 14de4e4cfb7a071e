package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/confluo/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig `toml:"logging"`
	HTTP        HTTPConfig    `toml:"http"`
	Sources     SourcesConfig `toml:"sources"`
	Screen      ScreenConfig  `toml:"screen"`
	News        NewsConfig    `toml:"news"`
	Cache       CacheConfig   `toml:"cache"`
	LLM         LLMConfig     `toml:"llm"`
	Gemini      GeminiConfig  `toml:"gemini"`
	Claude      ClaudeConfig  `toml:"claude"`
	OpenAI      OpenAIConfig  `toml:"openai"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// HTTPConfig controls outbound requests to rank and news sources
type HTTPConfig struct {
	UserAgent    string `toml:"user_agent"`
	Timeout      string `toml:"timeout"`       // per request, e.g. "15s"
	PageInterval string `toml:"page_interval"` // minimum gap between page fetches of one collector
}

// SourcesConfig holds the ranked listing descriptors
type SourcesConfig struct {
	Rise         models.SourceDescriptor `toml:"rise"`
	Volume       models.SourceDescriptor `toml:"volume"`
	Turnover     models.SourceDescriptor `toml:"turnover"`
	MarketCap    models.SourceDescriptor `toml:"market_cap"`
	ThemeList    models.SourceDescriptor `toml:"theme_list"`
	ThemeMembers models.SourceDescriptor `toml:"theme_members"`
	QuoteURL     string                  `toml:"quote_url"`    // per-stock quote page, {code} placeholder
	CapSelector  string                  `toml:"cap_selector"` // market cap element on the quote page
	QuoteReferer string                  `toml:"quote_referer"`
}

// ScreenConfig controls the intersection cycle
type ScreenConfig struct {
	Leaders   []string `toml:"leaders" validate:"dive,oneof=rise volume turnover market_cap"` // required leader lists
	Markets   []string `toml:"markets"`
	MaxThemes int      `toml:"max_themes" validate:"gte=1"`
}

// NewsConfig controls the news aggregator
type NewsConfig struct {
	Backends         []string      `toml:"backends" validate:"dive,oneof=ddg tavily searxng rss naver"`
	MaxItems         int           `toml:"max_items" validate:"gte=1"`         // K
	DeepFetch        int           `toml:"deep_fetch" validate:"gte=0,lte=10"` // M
	PerBackendLimit  int           `toml:"per_backend_limit" validate:"gte=1"`
	BackendTimeout   string        `toml:"backend_timeout"`
	DeepFetchTimeout string        `toml:"deep_fetch_timeout"`
	SummaryMaxRunes  int           `toml:"summary_max_runes" validate:"gte=1"`
	BodyMaxRunes     int           `toml:"body_max_runes" validate:"gte=1"`
	MinBodyRunes     int           `toml:"min_body_runes" validate:"gte=0"`
	ResolveRedirects bool          `toml:"resolve_redirects"`
	DDGURL           string        `toml:"ddg_url"`
	RSSTemplate      string        `toml:"rss_template"` // {query} placeholder
	StockNewsURL     string        `toml:"stock_news_url"`
	StockNewsReferer string        `toml:"stock_news_referer"`
	StockNewsItem    string        `toml:"stock_news_selector"`
	MarketQuery      string        `toml:"market_query"`
	StockQualifiers  []string      `toml:"stock_qualifiers"`
	Tavily           TavilyConfig  `toml:"tavily"`
	SearXNG          SearXNGConfig `toml:"searxng"`
}

type TavilyConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type SearXNGConfig struct {
	BaseURL string `toml:"base_url"`
}

// CacheConfig controls in-run memoization
type CacheConfig struct {
	Enabled   bool `toml:"enabled"`
	CacheNews bool `toml:"cache_news"`
}

// LLMConfig contains the model gateway settings shared by all providers
type LLMConfig struct {
	DefaultModel   string   `toml:"default_model" validate:"required"`
	Fallbacks      []string `toml:"fallbacks"`
	FallbackDelay  string   `toml:"fallback_delay"`
	Temperature    float32  `toml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int      `toml:"max_tokens" validate:"gte=1"`
	SystemPrompt   string   `toml:"system_prompt"`
	BriefingPrompt string   `toml:"briefing_prompt"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey string `toml:"api_key"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		HTTP: HTTPConfig{
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:      "15s",
			PageInterval: "50ms",
		},
		Sources: DefaultSources(),
		Screen: ScreenConfig{
			Leaders:   []string{"rise", "volume"},
			Markets:   []string{"PRIMARY", "SECONDARY"},
			MaxThemes: 20,
		},
		News: NewsConfig{
			Backends:         []string{"naver", "ddg", "rss"},
			MaxItems:         30,
			DeepFetch:        3,
			PerBackendLimit:  20,
			BackendTimeout:   "10s",
			DeepFetchTimeout: "10s",
			SummaryMaxRunes:  500,
			BodyMaxRunes:     2000,
			MinBodyRunes:     50,
			ResolveRedirects: true,
			DDGURL:           "https://html.duckduckgo.com/html/",
			RSSTemplate:      "https://news.google.com/rss/search?q={query}&hl=ko&gl=KR&ceid=KR:ko",
			StockNewsURL:     "https://finance.naver.com/item/news_news.naver?code={code}",
			StockNewsReferer: "https://finance.naver.com/item/news.naver?code={code}",
			StockNewsItem:    ".title > a, a.tit",
			MarketQuery:      "오늘 주식 시황 주도 테마 특징주",
			StockQualifiers:  []string{"주가", "전망", "호재", "특징주"},
			Tavily: TavilyConfig{
				BaseURL: "https://api.tavily.com",
			},
		},
		Cache: CacheConfig{
			Enabled:   true,
			CacheNews: true,
		},
		LLM: LLMConfig{
			DefaultModel:   "gemini-2.5-flash",
			Fallbacks:      []string{"gemini-2.0-flash", "gemini-1.5-flash"},
			FallbackDelay:  "1s",
			Temperature:    0.7,
			MaxTokens:      8192,
			SystemPrompt:   DefaultSystemPrompt,
			BriefingPrompt: DefaultBriefingPrompt,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CONFLUO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Logging configuration
	if level := os.Getenv("CONFLUO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CONFLUO_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// HTTP configuration
	if userAgent := os.Getenv("CONFLUO_HTTP_USER_AGENT"); userAgent != "" {
		config.HTTP.UserAgent = userAgent
	}
	if timeout := os.Getenv("CONFLUO_HTTP_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.HTTP.Timeout = timeout
		}
	}

	// Screen configuration
	if leaders := os.Getenv("CONFLUO_SCREEN_LEADERS"); leaders != "" {
		config.Screen.Leaders = splitList(leaders)
	}
	if maxThemes := os.Getenv("CONFLUO_SCREEN_MAX_THEMES"); maxThemes != "" {
		if n, err := strconv.Atoi(maxThemes); err == nil {
			config.Screen.MaxThemes = n
		}
	}

	// News configuration
	if backends := os.Getenv("CONFLUO_NEWS_BACKENDS"); backends != "" {
		config.News.Backends = splitList(backends)
	}
	if maxItems := os.Getenv("CONFLUO_NEWS_MAX_ITEMS"); maxItems != "" {
		if n, err := strconv.Atoi(maxItems); err == nil {
			config.News.MaxItems = n
		}
	}
	if deepFetch := os.Getenv("CONFLUO_NEWS_DEEP_FETCH"); deepFetch != "" {
		if n, err := strconv.Atoi(deepFetch); err == nil {
			config.News.DeepFetch = n
		}
	}
	if resolve := os.Getenv("CONFLUO_NEWS_RESOLVE_REDIRECTS"); resolve != "" {
		if b, err := strconv.ParseBool(resolve); err == nil {
			config.News.ResolveRedirects = b
		}
	}
	if searxng := os.Getenv("CONFLUO_SEARXNG_URL"); searxng != "" {
		config.News.SearXNG.BaseURL = searxng
	}

	// Cache configuration
	if enabled := os.Getenv("CONFLUO_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = b
		}
	}

	// LLM configuration
	if model := os.Getenv("CONFLUO_LLM_MODEL"); model != "" {
		config.LLM.DefaultModel = model
	}
	if fallbacks := os.Getenv("CONFLUO_LLM_FALLBACKS"); fallbacks != "" {
		config.LLM.Fallbacks = splitList(fallbacks)
	}
	if delay := os.Getenv("CONFLUO_LLM_FALLBACK_DELAY"); delay != "" {
		if _, err := time.ParseDuration(delay); err == nil {
			config.LLM.FallbackDelay = delay
		}
	}
}

// Validate checks struct constraints on the loaded configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ResolveAPIKey resolves a credential with environment variable priority.
// Resolution order: environment variables (in order) → config fallback → error
func ResolveAPIKey(envNames []string, configFallback string) (string, error) {
	for _, name := range envNames {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			return value, nil
		}
	}

	if value := strings.TrimSpace(configFallback); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("%w: none of %s set and no config value", models.ErrCredentialMissing, strings.Join(envNames, ", "))
}

// Credential environment variables per provider
var (
	GeminiKeyEnv = []string{"CONFLUO_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}
	ClaudeKeyEnv = []string{"CONFLUO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"}
	OpenAIKeyEnv = []string{"CONFLUO_OPENAI_API_KEY", "OPENAI_API_KEY"}
	TavilyKeyEnv = []string{"CONFLUO_TAVILY_API_KEY", "TAVILY_API_KEY"}
)

// ParseDuration parses a duration string, returning def when empty or invalid
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// ParsedMarkets returns the configured market segments, skipping unknown values
func (s ScreenConfig) ParsedMarkets() []models.Market {
	var markets []models.Market
	for _, raw := range s.Markets {
		m, err := models.ParseMarket(raw)
		if err != nil || m == models.MarketUnknown {
			continue
		}
		markets = append(markets, m)
	}
	if len(markets) == 0 {
		return models.Markets
	}
	return markets
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
