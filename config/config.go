package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StrategistModeReject = "reject"
	StrategistModeRepair = "repair"

	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	QuoteFinnhub  = "finnhub"
	QuoteYahoo    = "yahoo"
	QuoteLongport = "longport"
)

type Config struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`
	DBPath     string `json:"db_path"`

	LLMProvider    string        `json:"llm_provider"`
	LLMModel       string        `json:"llm_model"`
	BackendURL     string        `json:"backend_url"`
	MaxTokens      int           `json:"max_tokens"`
	LLMMaxAttempts int           `json:"llm_max_attempts"`
	LLMBaseDelay   time.Duration `json:"llm_base_delay"`

	// AI Model API Keys
	OpenAIAPIKey   string `json:"openai_api_key"`
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// Market data
	QuoteProvider  string        `json:"quote_provider"`
	FinnhubAPIKey  string        `json:"finnhub_api_key"`
	PriceCacheTTL  time.Duration `json:"price_cache_ttl"`
	PriceCacheSize int           `json:"price_cache_size"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	StrategistMode   string `json:"strategist_mode"`
	PortfolioRefresh string `json:"portfolio_refresh"`

	LogLevel       string `json:"log_level"`
	LogPretty      bool   `json:"log_pretty"`
	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr"`
	Debug          bool   `json:"debug"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

// WithEnv returns a copy of c with .env and environment overrides applied.
// Secrets usually live there rather than in the config file.
func (c Config) WithEnv() *Config {
	_ = godotenv.Load()
	c.loadFromEnv()
	return &c
}

// DefaultConfigWithRoot returns defaults rooted at dir without reading the environment.
func DefaultConfigWithRoot(dir string) *Config {
	return &Config{
		ProjectDir: dir,
		DataDir:    filepath.Join(dir, "data"),
		DBPath:     filepath.Join(dir, "data", "finsim.db"),

		LLMProvider:    ProviderDeepSeek,
		LLMModel:       "deepseek-chat",
		BackendURL:     "",
		MaxTokens:      4096,
		LLMMaxAttempts: 3,
		LLMBaseDelay:   10 * time.Second,

		QuoteProvider:  QuoteFinnhub,
		PriceCacheTTL:  time.Hour,
		PriceCacheSize: 100,

		StrategistMode:   StrategistModeReject,
		PortfolioRefresh: "@every 60s",

		LogLevel:    "info",
		LogPretty:   true,
		MetricsAddr: ":9464",

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}
}

// loadConfigFromFile decodes the JSON file at path into cfg. Keys missing
// from the file keep the values cfg already holds.
func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
		c.DBPath = filepath.Join(val, "finsim.db")
	}
	if val := os.Getenv("FINSIM_DB_PATH"); val != "" {
		c.DBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = strings.ToLower(val)
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}
	if val := os.Getenv("LLM_MAX_ATTEMPTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LLMMaxAttempts = v
		}
	}
	if val := os.Getenv("LLM_BASE_DELAY"); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			c.LLMBaseDelay = v
		}
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}

	if val := os.Getenv("QUOTE_PROVIDER"); val != "" {
		c.QuoteProvider = strings.ToLower(val)
	}
	if val := os.Getenv("FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("PRICE_CACHE_TTL"); val != "" {
		if v, err := time.ParseDuration(val); err == nil {
			c.PriceCacheTTL = v
		}
	}
	if val := os.Getenv("PRICE_CACHE_SIZE"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.PriceCacheSize = v
		}
	}
	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("STRATEGIST_MODE"); val != "" {
		c.StrategistMode = strings.ToLower(val)
	}
	if val := os.Getenv("PORTFOLIO_REFRESH"); val != "" {
		c.PortfolioRefresh = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_PRETTY"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.LogPretty = v
		}
	}
	if val := os.Getenv("METRICS_ENABLED"); val != "" {
		if v, err := strconv.ParseBool(val); err == nil {
			c.MetricsEnabled = v
		}
	}
	if val := os.Getenv("METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}
	if val := os.Getenv("FINSIM_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}
}

// Validate checks enumerated settings and numeric bounds.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderDeepSeek:
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLMProvider)
	}
	switch c.QuoteProvider {
	case QuoteFinnhub, QuoteYahoo, QuoteLongport:
	default:
		return fmt.Errorf("unsupported quote provider %q", c.QuoteProvider)
	}
	switch c.StrategistMode {
	case StrategistModeReject, StrategistModeRepair:
	default:
		return fmt.Errorf("strategist mode must be %q or %q, got %q", StrategistModeReject, StrategistModeRepair, c.StrategistMode)
	}
	if c.PriceCacheSize <= 0 {
		return fmt.Errorf("price cache size must be positive")
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("price cache ttl must be positive")
	}
	if c.LLMMaxAttempts <= 0 {
		return fmt.Errorf("llm max attempts must be positive")
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}

// APIKey returns the key for the configured LLM provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.DeepSeekAPIKey
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir, filepath.Dir(c.DBPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
