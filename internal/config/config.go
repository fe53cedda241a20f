package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Provider names accepted for the extractor and the generator
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Assistant  AssistantConfig
	Ranking    RankingConfig
	Logging    LoggingConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	RateLimit  RateLimitConfig
	Breaker    BreakerConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, wins over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	AutoMigrate        bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	ShutdownGrace  time.Duration
}

// AssistantConfig holds the retrieval pipeline settings
type AssistantConfig struct {
	ExtractorProvider string
	GeneratorProvider string
	TaxonomyFile      string // empty means the embedded taxonomy

	DefaultLimit    int // products per single-filter request
	PerSlotLimit    int // products per slot when several filters are pooled
	ScanCap         int // records read by the last-resort catalog scan
	SlotConcurrency int

	ExtractTimeout  time.Duration
	LookupTimeout   time.Duration
	GenerateTimeout time.Duration
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightTerms float64
	WeightBias  float64
	WeightPrice float64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string
	Format      string // json or console
	File        string // optional rotating log file
	MaxSizeMB   int
	MaxBackups  int
	ServiceName string
}

// OpenAIConfig holds configuration for any OpenAI-compatible chat API
type OpenAIConfig struct {
	APIKey          string
	APIBase         string
	ChatModel       string
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	Timeout         int
	Enabled         bool
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Enabled         bool
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Enabled           bool
}

// BreakerConfig holds circuit breaker settings for model calls
type BreakerConfig struct {
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	openAIKey := getEnv("OPENAI_API_KEY", "")
	geminiKey := getEnv("GEMINI_API_KEY", "")

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "pcstore"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			AutoMigrate:        getEnvAsBool("PG_AUTO_MIGRATE", false),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			ShutdownGrace:  getEnvAsDuration("SERVER_SHUTDOWN_GRACE", 10*time.Second),
		},
		Assistant: AssistantConfig{
			ExtractorProvider: strings.ToLower(getEnv("ASSISTANT_EXTRACTOR", getEnv("ASSISTANT_PROVIDER", defaultProvider(openAIKey, geminiKey)))),
			GeneratorProvider: strings.ToLower(getEnv("ASSISTANT_GENERATOR", getEnv("ASSISTANT_PROVIDER", defaultProvider(openAIKey, geminiKey)))),
			TaxonomyFile:      getEnv("ASSISTANT_TAXONOMY_FILE", ""),
			DefaultLimit:      getEnvAsInt("ASSISTANT_DEFAULT_LIMIT", 10),
			PerSlotLimit:      getEnvAsInt("ASSISTANT_PER_SLOT_LIMIT", 3),
			ScanCap:           getEnvAsInt("ASSISTANT_SCAN_CAP", 100),
			SlotConcurrency:   getEnvAsInt("ASSISTANT_SLOT_CONCURRENCY", 4),
			ExtractTimeout:    getEnvAsDuration("ASSISTANT_EXTRACT_TIMEOUT", 15*time.Second),
			LookupTimeout:     getEnvAsDuration("ASSISTANT_LOOKUP_TIMEOUT", 3*time.Second),
			GenerateTimeout:   getEnvAsDuration("ASSISTANT_GENERATE_TIMEOUT", 60*time.Second),
		},
		Ranking: RankingConfig{
			WeightTerms: getEnvAsFloat("RANK_WEIGHT_TERMS", 0.5),
			WeightBias:  getEnvAsFloat("RANK_WEIGHT_BIAS", 0.3),
			WeightPrice: getEnvAsFloat("RANK_WEIGHT_PRICE", 0.2),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			File:        getEnv("LOG_FILE", ""),
			MaxSizeMB:   getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 50),
			MaxBackups:  getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			ServiceName: getEnv("SERVICE_NAME", "pcstore-assistant"),
		},
		OpenAI: OpenAIConfig{
			APIKey:          openAIKey,
			APIBase:         strings.TrimRight(getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"), "/"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1500),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 60),
			Enabled:         openAIKey != "",
		},
		Gemini: GeminiConfig{
			APIKey:          geminiKey,
			Model:           getEnv("GEMINI_MODEL_NAME", "gemini-2.0-flash"),
			Temperature:     getEnvAsFloat("GEMINI_TEMPERATURE", 0.7),
			MaxOutputTokens: getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 1000),
			Enabled:         geminiKey != "",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 2),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
		},
		Breaker: BreakerConfig{
			MinRequests:      uint32(getEnvAsInt("BREAKER_MIN_REQUESTS", 5)),
			FailureRatio:     getEnvAsFloat("BREAKER_FAILURE_RATIO", 0.6),
			OpenTimeout:      getEnvAsDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
			HalfOpenMaxCalls: uint32(getEnvAsInt("BREAKER_HALF_OPEN_MAX_CALLS", 1)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at request time
func (c *Config) Validate() error {
	for name, provider := range map[string]string{
		"ASSISTANT_EXTRACTOR": c.Assistant.ExtractorProvider,
		"ASSISTANT_GENERATOR": c.Assistant.GeneratorProvider,
	} {
		switch provider {
		case ProviderOpenAI:
			if !c.OpenAI.Enabled {
				return fmt.Errorf("%s=openai requires OPENAI_API_KEY", name)
			}
		case ProviderGemini:
			if !c.Gemini.Enabled {
				return fmt.Errorf("%s=gemini requires GEMINI_API_KEY", name)
			}
		case ProviderNone:
		default:
			return fmt.Errorf("%s: unknown provider %q (want openai, gemini or none)", name, provider)
		}
	}

	if c.Assistant.DefaultLimit <= 0 || c.Assistant.PerSlotLimit <= 0 {
		return fmt.Errorf("assistant limits must be positive")
	}
	if c.Assistant.ScanCap <= 0 {
		return fmt.Errorf("ASSISTANT_SCAN_CAP must be positive")
	}
	if c.Assistant.SlotConcurrency <= 0 {
		return fmt.Errorf("ASSISTANT_SLOT_CONCURRENCY must be positive")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

func defaultProvider(openAIKey, geminiKey string) string {
	switch {
	case openAIKey != "":
		return ProviderOpenAI
	case geminiKey != "":
		return ProviderGemini
	default:
		return ProviderNone
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("invalid boolean value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("3s", "500ms") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Dur("default", defaultValue).Msg("invalid duration value, using default")
	return defaultValue
}
