// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 保存先の種別。
const (
	StorageDriverFile     = "file"
	StorageDriverPostgres = "postgres"
)

// 言語モデルの接続先の種別。
const (
	LLMProviderOpenAI = "openai"
	LLMProviderMock   = "mock"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string
	LogLevel   string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// Storage
	StorageDriver  string
	StorageDir     string
	DatabaseURL    string
	StorageTimeout time.Duration

	// LLM
	LLMProvider    string
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float64

	// Interview
	ResetDelay    time.Duration
	ClientIdleTTL time.Duration

	// Resume
	ResumeMaxSize int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitSubmit  int

	// Retention
	RetentionDays int
	SweepInterval time.Duration
}

// Load は環境変数からConfigを読み込む。
// 値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:        getEnvString("SERVER_PORT", "8080"),
		BaseURL:           getEnvString("BASE_URL", "http://localhost:8080"),
		LogLevel:          getEnvString("LOG_LEVEL", "info"),
		CookieDomain:      getEnvString("COOKIE_DOMAIN", ""),
		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),

		StorageDriver:  strings.ToLower(getEnvString("STORAGE_DRIVER", StorageDriverFile)),
		StorageDir:     getEnvString("STORAGE_DIR", "./data"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StorageTimeout: getEnvDuration("STORAGE_TIMEOUT", 5*time.Second),

		LLMBaseURL:     getEnvString("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       getEnvString("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		ResetDelay:    getEnvDuration("RESET_DELAY", 15*time.Second),
		ClientIdleTTL: getEnvDuration("CLIENT_IDLE_TTL", 6*time.Hour),

		ResumeMaxSize: getEnvInt64("RESUME_MAX_SIZE", 10<<20),

		RateLimitGeneral: getEnvInt("RATE_LIMIT_GENERAL", 120),
		RateLimitSubmit:  getEnvInt("RATE_LIMIT_SUBMIT", 30),

		RetentionDays: getEnvInt("RETENTION_DAYS", 0),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 24*time.Hour),
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	defaultProvider := LLMProviderOpenAI
	if cfg.LLMAPIKey == "" {
		defaultProvider = LLMProviderMock
	}
	cfg.LLMProvider = strings.ToLower(getEnvString("LLM_PROVIDER", defaultProvider))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	switch c.StorageDriver {
	case StorageDriverFile:
		if c.StorageDir == "" {
			problems = append(problems, "STORAGE_DIR must not be empty when STORAGE_DRIVER=file")
		}
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q (want file or postgres)", c.StorageDriver))
	}

	switch c.LLMProvider {
	case LLMProviderMock:
	case LLMProviderOpenAI:
		if c.LLMAPIKey == "" {
			problems = append(problems, "LLM_API_KEY is required when LLM_PROVIDER=openai")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown LLM_PROVIDER %q (want openai or mock)", c.LLMProvider))
	}

	if c.ResumeMaxSize <= 0 {
		problems = append(problems, "RESUME_MAX_SIZE must be positive")
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitSubmit <= 0 {
		problems = append(problems, "RATE_LIMIT_GENERAL and RATE_LIMIT_SUBMIT must be positive")
	}
	if c.RetentionDays < 0 {
		problems = append(problems, "RETENTION_DAYS must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
