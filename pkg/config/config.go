package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Classifier providers.
const (
	ClassifierKeyword = "keyword"
	ClassifierGemini  = "gemini"
	ClassifierOpenAI  = "openai"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	CORS       CORSConfig
	Log        LogConfig
	Analytics  AnalyticsConfig
	Workflow   WorkflowConfig
	Classifier ClassifierConfig
	Jobs       JobsConfig
}

// DatabaseConfig describes the PostgreSQL pool. URL, when set, takes
// precedence over the discrete host fields.
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig sizes the in-process cache used when Redis is disabled.
type CacheConfig struct {
	LRUSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AnalyticsConfig governs feature flagging and cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	Enabled         bool
	CacheTTL        time.Duration
	TopN            int
	PredictionLimit int
}

// WorkflowConfig tunes rule application and SLA handling.
type WorkflowConfig struct {
	SLAHours         int
	SkipAppliedRules bool
	SweepInterval    time.Duration
	SeedDefaultRules bool
}

// ClassifierConfig selects the grievance classifier backend.
type ClassifierConfig struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// JobsConfig sizes the background delivery queues.
type JobsConfig struct {
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:             v.GetString("DATABASE_URL"),
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"), 30*time.Minute),
		AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:     v.GetBool("REDIS_ENABLED"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		PoolSize:    v.GetInt("REDIS_POOL_SIZE"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.Cache = CacheConfig{LRUSize: positiveOr(v.GetInt("CACHE_LRU_SIZE"), 256)}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:         v.GetBool("ENABLE_ANALYTICS"),
		CacheTTL:        parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 5*time.Minute),
		TopN:            positiveOr(v.GetInt("ANALYTICS_TOP_N"), 5),
		PredictionLimit: positiveOr(v.GetInt("ANALYTICS_PREDICTION_LIMIT"), 10),
	}

	cfg.Workflow = WorkflowConfig{
		SLAHours:         nonNegativeOr(v.GetInt("WORKFLOW_SLA_HOURS"), 24),
		SkipAppliedRules: v.GetBool("WORKFLOW_SKIP_APPLIED_RULES"),
		SweepInterval:    parseDuration(v.GetString("WORKFLOW_SWEEP_INTERVAL"), 0),
		SeedDefaultRules: v.GetBool("WORKFLOW_SEED_DEFAULT_RULES"),
	}

	provider := strings.ToLower(strings.TrimSpace(v.GetString("CLASSIFIER_PROVIDER")))
	switch provider {
	case ClassifierGemini, ClassifierOpenAI:
	default:
		provider = ClassifierKeyword
	}
	cfg.Classifier = ClassifierConfig{
		Provider: provider,
		APIKey:   v.GetString("CLASSIFIER_API_KEY"),
		Model:    v.GetString("CLASSIFIER_MODEL"),
		Timeout:  parseDuration(v.GetString("CLASSIFIER_TIMEOUT"), 10*time.Second),
	}

	cfg.Jobs = JobsConfig{
		Workers: positiveOr(v.GetInt("JOBS_WORKERS"), 2),
		Retries: v.GetInt("JOBS_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "grievance_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("CACHE_LRU_SIZE", 256)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ANALYTICS", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "5m")
	v.SetDefault("ANALYTICS_TOP_N", 5)
	v.SetDefault("ANALYTICS_PREDICTION_LIMIT", 10)

	v.SetDefault("WORKFLOW_SLA_HOURS", 24)
	v.SetDefault("WORKFLOW_SKIP_APPLIED_RULES", false)
	v.SetDefault("WORKFLOW_SWEEP_INTERVAL", "0s")
	v.SetDefault("WORKFLOW_SEED_DEFAULT_RULES", true)

	v.SetDefault("CLASSIFIER_PROVIDER", ClassifierKeyword)
	v.SetDefault("CLASSIFIER_API_KEY", "")
	v.SetDefault("CLASSIFIER_MODEL", "")
	v.SetDefault("CLASSIFIER_TIMEOUT", "10s")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func nonNegativeOr(value, fallback int) int {
	if value < 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
