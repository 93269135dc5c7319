package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	Environment string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionDuration time.Duration

	LLMProvider    string
	LLMTimeout     time.Duration
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	VertexProject  string
	VertexLocation string
	VertexModel    string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string
	EmailDebug   bool

	RedisURL        string
	TrustProxy      bool
	RateLimit       int
	RateLimitWindow time.Duration

	ShareSecret string
	ShareTTL    time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("config: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		DatabaseType: getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./copyforge.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SessionDuration: getDuration("SESSION_DURATION", 7*24*time.Hour),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMTimeout:     getDuration("LLM_TIMEOUT", 60*time.Second),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		VertexProject:  getEnv("VERTEX_PROJECT", ""),
		VertexLocation: getEnv("VERTEX_LOCATION", "us-central1"),
		VertexModel:    getEnv("VERTEX_MODEL", "gemini-1.5-flash"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Copyforge"),
		AppBaseURL:   strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		EmailDebug:   getBool("EMAIL_DEBUG", false),

		RedisURL:        getEnv("REDIS_URL", ""),
		TrustProxy:      getBool("TRUST_PROXY", false),
		RateLimit:       getInt("RATE_LIMIT", 20),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),

		ShareSecret: getEnv("SHARE_SECRET", ""),
		ShareTTL:    getDuration("SHARE_TTL", 72*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// IsProduction reports whether cookies must always carry the Secure flag
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logrus.Warnf("config: invalid duration %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		logrus.Warnf("config: invalid integer %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
