package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Qdrant    QdrantConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Auth      AuthConfig
	Screening ScreeningConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	AnalyticsTTL time.Duration
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
	Timeout    time.Duration
	MaxRetries int
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
	// MaxUploadSize caps a whole multipart request body.
	MaxUploadSize int64
}

type WorkerConfig struct {
	Concurrency       int
	QueueSize         int
	PollInterval      time.Duration
	TaskTimeout       time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type ScreeningConfig struct {
	MaxBatchSize      int
	StrongThreshold   int
	ModerateThreshold int
	DefaultPageSize   int
	MaxPageSize       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

var defaults = map[string]interface{}{
	"PORT": "3000",
	"ENV":  "development",

	"DB_HOST":     "localhost",
	"DB_PORT":     "5432",
	"DB_USER":     "postgres",
	"DB_PASSWORD": "postgres",
	"DB_NAME":     "resume_screening",
	"DB_SSLMODE":  "disable",

	"REDIS_ADDR":          "",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"REDIS_ANALYTICS_TTL": "5m",

	"QDRANT_URL":        "",
	"QDRANT_API_KEY":    "",
	"QDRANT_COLLECTION": "job_postings",

	"GEMINI_API_KEY":     "",
	"GEMINI_MODEL":       "gemini-2.5-flash",
	"GEMINI_EMBED_MODEL": "text-embedding-004",
	"GEMINI_TIMEOUT":     "45s",
	"GEMINI_MAX_RETRIES": 2,

	"UPLOAD_PATH":     "./uploads",
	"MAX_FILE_SIZE":   10485760,
	"MAX_UPLOAD_SIZE": 268435456,

	"WORKER_CONCURRENCY":   3,
	"WORKER_QUEUE_SIZE":    1000,
	"WORKER_POLL_INTERVAL": "10s",
	"WORKER_TASK_TIMEOUT":  "2m",
	"RETRY_MAX_ATTEMPTS":   3,
	"RETRY_INITIAL_DELAY":  "2s",

	"JWT_SECRET": "",
	"JWT_ISSUER": "",

	"SCREENING_MAX_BATCH_SIZE":     500,
	"SCREENING_STRONG_THRESHOLD":   80,
	"SCREENING_MODERATE_THRESHOLD": 50,
	"SCREENING_DEFAULT_PAGE_SIZE":  20,
	"SCREENING_MAX_PAGE_SIZE":      100,

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "console",
}

// Load reads .env (if present) and the environment on top of built-in defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Address:      v.GetString("REDIS_ADDR"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			AnalyticsTTL: v.GetDuration("REDIS_ANALYTICS_TTL"),
		},
		Qdrant: QdrantConfig{
			URL:        v.GetString("QDRANT_URL"),
			APIKey:     v.GetString("QDRANT_API_KEY"),
			Collection: v.GetString("QDRANT_COLLECTION"),
		},
		Gemini: GeminiConfig{
			APIKey:     v.GetString("GEMINI_API_KEY"),
			Model:      v.GetString("GEMINI_MODEL"),
			EmbedModel: v.GetString("GEMINI_EMBED_MODEL"),
			Timeout:    v.GetDuration("GEMINI_TIMEOUT"),
			MaxRetries: v.GetInt("GEMINI_MAX_RETRIES"),
		},
		Storage: StorageConfig{
			UploadPath:    v.GetString("UPLOAD_PATH"),
			MaxFileSize:   v.GetInt64("MAX_FILE_SIZE"),
			MaxUploadSize: v.GetInt64("MAX_UPLOAD_SIZE"),
		},
		Worker: WorkerConfig{
			Concurrency:       v.GetInt("WORKER_CONCURRENCY"),
			QueueSize:         v.GetInt("WORKER_QUEUE_SIZE"),
			PollInterval:      v.GetDuration("WORKER_POLL_INTERVAL"),
			TaskTimeout:       v.GetDuration("WORKER_TASK_TIMEOUT"),
			RetryMaxAttempts:  v.GetInt("RETRY_MAX_ATTEMPTS"),
			RetryInitialDelay: v.GetDuration("RETRY_INITIAL_DELAY"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Issuer:    v.GetString("JWT_ISSUER"),
		},
		Screening: ScreeningConfig{
			MaxBatchSize:      v.GetInt("SCREENING_MAX_BATCH_SIZE"),
			StrongThreshold:   v.GetInt("SCREENING_STRONG_THRESHOLD"),
			ModerateThreshold: v.GetInt("SCREENING_MODERATE_THRESHOLD"),
			DefaultPageSize:   v.GetInt("SCREENING_DEFAULT_PAGE_SIZE"),
			MaxPageSize:       v.GetInt("SCREENING_MAX_PAGE_SIZE"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Hard upper bounds for the screening API.
const (
	MaxBatchSizeLimit  = 500
	MaxPageSizeLimit   = 100
	MaxUploadSizeLimit = 1 << 30
)

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if c.Worker.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Screening.MaxBatchSize < 1 || c.Screening.MaxBatchSize > MaxBatchSizeLimit {
		return fmt.Errorf("SCREENING_MAX_BATCH_SIZE must be between 1 and %d", MaxBatchSizeLimit)
	}
	if c.Storage.MaxFileSize < 1 || c.Storage.MaxUploadSize < c.Storage.MaxFileSize {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be at least MAX_FILE_SIZE")
	}
	if c.Storage.MaxUploadSize > MaxUploadSizeLimit {
		return fmt.Errorf("MAX_UPLOAD_SIZE must not exceed %d bytes", int64(MaxUploadSizeLimit))
	}
	if c.Screening.ModerateThreshold < 0 || c.Screening.StrongThreshold > 100 ||
		c.Screening.ModerateThreshold >= c.Screening.StrongThreshold {
		return fmt.Errorf("screening thresholds must satisfy 0 <= moderate < strong <= 100")
	}
	if c.Screening.MaxPageSize > MaxPageSizeLimit {
		return fmt.Errorf("SCREENING_MAX_PAGE_SIZE must not exceed %d", MaxPageSizeLimit)
	}
	if c.Screening.DefaultPageSize < 1 || c.Screening.DefaultPageSize > c.Screening.MaxPageSize {
		return fmt.Errorf("SCREENING_DEFAULT_PAGE_SIZE must be between 1 and SCREENING_MAX_PAGE_SIZE")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}
