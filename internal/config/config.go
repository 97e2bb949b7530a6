package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Ledger backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type Config struct {
	// Telegram settings
	TelegramToken    string
	AllowedUsernames []string // empty = everyone

	// AI settings
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	MaxGeminiRequests int // per day, 0 = unlimited
	MaxOpenAIRequests int
	MaxAIRequests     int

	// Ledger settings
	LedgerBackend    string
	UsedTopicsFile   string
	LedgerSQLitePath string
	DatabaseURL      string
	LedgerMaxTopics  int

	// Generation settings
	GenerationAttempts int
	TopicsPerBatch     int
	GenerationTimeout  time.Duration // stale guard entries older than this are swept
	SweepInterval      time.Duration
	SessionTTL         time.Duration
	RequestTimeout     time.Duration // per model call

	// Content sources
	PromptsFile string
	FeedsFile   string

	// App settings
	Debug                bool
	EnableHTTPMonitoring bool
	MonitoringPort       string
}

func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		PromptsFile:   os.Getenv("PROMPTS_FILE"),
		FeedsFile:     os.Getenv("FEEDS_FILE"),

		GeminiModel: getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel: getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		MaxGeminiRequests: getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 0),
		MaxOpenAIRequests: getEnvIntOrDefault("MAX_OPENAI_REQUESTS", 0),
		MaxAIRequests:     getEnvIntOrDefault("MAX_AI_REQUESTS", 0),

		LedgerBackend:    strings.ToLower(getEnvOrDefault("LEDGER_BACKEND", BackendFile)),
		UsedTopicsFile:   getEnvOrDefault("USED_TOPICS_FILE", "./used_topics.json"),
		LedgerSQLitePath: getEnvOrDefault("LEDGER_SQLITE_PATH", "./used_topics.db"),
		LedgerMaxTopics:  getEnvIntOrDefault("LEDGER_MAX_TOPICS", 500),

		GenerationAttempts: getEnvIntOrDefault("GENERATION_ATTEMPTS", 8),
		TopicsPerBatch:     getEnvIntOrDefault("TOPICS_PER_BATCH", 5),
		GenerationTimeout:  getEnvDurationOrDefault("GENERATION_TIMEOUT", 5*time.Minute),
		SweepInterval:      getEnvDurationOrDefault("SWEEP_INTERVAL", time.Minute),
		SessionTTL:         getEnvDurationOrDefault("SESSION_TTL", time.Hour),
		RequestTimeout:     getEnvDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),

		Debug:                os.Getenv("DEBUG") == "true",
		EnableHTTPMonitoring: os.Getenv("ENABLE_HTTP_MONITORING") == "true",
		MonitoringPort:       getEnvOrDefault("MONITORING_PORT", "8080"),
	}

	for _, name := range strings.Split(os.Getenv("ALLOWED_USERNAMES"), ",") {
		name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "@"))
		if name != "" {
			cfg.AllowedUsernames = append(cfg.AllowedUsernames, name)
		}
	}

	return cfg, cfg.ValidateStorage()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Accepts Go durations ("90s", "5m") or plain seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// ValidateStorage checks the ledger settings, which every command needs.
func (c *Config) ValidateStorage() error {
	switch c.LedgerBackend {
	case BackendFile:
		if c.UsedTopicsFile == "" {
			return fmt.Errorf("USED_TOPICS_FILE is required for the file backend")
		}
	case BackendSQLite:
		if c.LedgerSQLitePath == "" {
			return fmt.Errorf("LEDGER_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be 'file', 'sqlite' or 'postgres'")
	}
	if c.LedgerMaxTopics <= 0 {
		return fmt.Errorf("LEDGER_MAX_TOPICS must be positive")
	}
	return nil
}

// Validate checks everything the bot needs to run.
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY or OPENAI_API_KEY is required")
	}
	if c.GenerationAttempts <= 0 {
		return fmt.Errorf("GENERATION_ATTEMPTS must be positive")
	}
	if c.TopicsPerBatch <= 0 {
		return fmt.Errorf("TOPICS_PER_BATCH must be positive")
	}
	return nil
}

// IsAllowed reports whether username may use the bot.
func (c *Config) IsAllowed(username string) bool {
	if len(c.AllowedUsernames) == 0 {
		return true
	}
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	for _, allowed := range c.AllowedUsernames {
		if allowed == username {
			return true
		}
	}
	return false
}
