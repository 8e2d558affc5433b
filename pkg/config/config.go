package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultSymbols is the sidebar selector list; override with SYMBOLS.
var defaultSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "META",
	"NVDA", "TSLA", "IBM", "NFLX", "AMD",
}

type Config struct {
	HTTPPort int

	// Secrets, loaded from the secrets file or the environment
	StockAPIKey    string
	DeepSeekAPIKey string

	// Chat-completion provider
	DeepSeekBaseURL string
	DeepSeekModel   string
	ChatMaxTokens   int
	ChatTimeout     time.Duration

	// Market-data provider
	StockAPIBaseURL string
	FetchTimeout    time.Duration

	// Optional quote cache
	RedisURL      string
	QuoteCacheTTL time.Duration

	// UI
	Symbols []string
}

// DefaultSymbol is the symbol selected on first load.
func (c *Config) DefaultSymbol() string {
	return c.Symbols[0]
}

// Load reads the secrets file, environment variables and application flags
// (via a local FlagSet so `go test` flags don't collide), then validates
// required fields.
func Load() (*Config, error) {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	var httpPort int
	var secretsFile string
	var redisURL string
	fs.IntVar(&httpPort, "port", 8080, "HTTP listen port")
	fs.StringVar(&secretsFile, "secrets", ".env", "path to the local secrets file")
	fs.StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "Redis connection URL (enables the quote cache)")

	// Filter out any -test.* args before parsing
	var appArgs []string
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			continue
		}
		appArgs = append(appArgs, arg)
	}
	if err := fs.Parse(appArgs); err != nil {
		return nil, err
	}

	// The secrets file holds the two API keys. A missing file is fine as
	// long as the keys arrive through the environment.
	if err := godotenv.Load(secretsFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading secrets file %s: %w", secretsFile, err)
	}

	cfg := &Config{
		HTTPPort:        httpPort,
		StockAPIKey:     os.Getenv("STOCK_API_KEY"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekBaseURL: getEnvOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		DeepSeekModel:   getEnvOrDefault("DEEPSEEK_MODEL", "deepseek-chat"),
		ChatMaxTokens:   1000,
		ChatTimeout:     getDurationEnvOrDefault("CHAT_TIMEOUT", 30*time.Second),
		StockAPIBaseURL: getEnvOrDefault("STOCK_API_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		FetchTimeout:    getDurationEnvOrDefault("FETCH_TIMEOUT", 10*time.Second),
		RedisURL:        redisURL,
		QuoteCacheTTL:   getDurationEnvOrDefault("QUOTE_CACHE_TTL", 15*time.Minute),
		Symbols:         defaultSymbols,
	}

	// PORT env var overrides flag/default if set
	if portEnv := os.Getenv("PORT"); portEnv != "" {
		portVal, err := strconv.Atoi(portEnv)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT env var: %v", err)
		}
		cfg.HTTPPort = portVal
	}

	if maxTokens := os.Getenv("CHAT_MAX_TOKENS"); maxTokens != "" {
		if n, err := strconv.Atoi(maxTokens); err == nil && n > 0 {
			cfg.ChatMaxTokens = n
		}
	}

	if env := os.Getenv("SYMBOLS"); env != "" {
		cfg.Symbols = splitAndTrim(env, ",")
	}

	// Validate required fields
	if cfg.StockAPIKey == "" {
		return nil, fmt.Errorf("missing required config: STOCK_API_KEY")
	}
	if cfg.DeepSeekAPIKey == "" {
		return nil, fmt.Errorf("missing required config: DEEPSEEK_API_KEY")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}

	return cfg, nil
}

// splitAndTrim splits s on sep, trims spaces, and drops empty entries.
func splitAndTrim(s, sep string) []string {
	parts := []string{}
	for _, p := range strings.Split(s, sep) {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, strings.ToUpper(t))
		}
	}
	return parts
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnvOrDefault returns environment variable as duration or default
func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
