package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gogotex/archive/internal/storage"
)

// Backends accepted by ARCHIVE_BACKEND.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendMinIO  = "minio"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	LogLevel  string
	Archive   ArchiveConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     storage.MinIOConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ArchiveConfig selects where the collection snapshot lives.
type ArchiveConfig struct {
	Backend  string
	Path     string
	Compress bool
	LoanDays int
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Key      string
}

// Addr returns host:port, or "" when no host is configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type RateLimitConfig struct {
	Enabled  bool
	RPS      float64
	Burst    int
	UseRedis bool
	Window   time.Duration
}

// LoadConfig loads configuration from environment variables and an optional
// .env file in the working directory.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ARCHIVE_BACKEND", BackendFile)
	v.SetDefault("ARCHIVE_PATH", "documents.json")
	v.SetDefault("ARCHIVE_COMPRESS", false)
	v.SetDefault("ARCHIVE_LOAN_DAYS", 14)
	v.SetDefault("MONGODB_DATABASE", "archive")
	v.SetDefault("MONGODB_COLLECTION", "snapshots")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_KEY", "archive:documents")
	v.SetDefault("MINIO_BUCKET", "archive")
	v.SetDefault("MINIO_OBJECT", "documents.json")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		LogLevel: v.GetString("LOG_LEVEL"),
		Archive: ArchiveConfig{
			Backend:  strings.ToLower(strings.TrimSpace(v.GetString("ARCHIVE_BACKEND"))),
			Path:     v.GetString("ARCHIVE_PATH"),
			Compress: v.GetBool("ARCHIVE_COMPRESS"),
			LoanDays: v.GetInt("ARCHIVE_LOAN_DAYS"),
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       0,
			Key:      v.GetString("REDIS_KEY"),
		},
		MinIO: storage.MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Object:    v.GetString("MINIO_OBJECT"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			Window:   time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Archive.Backend {
	case BackendFile:
		if c.Archive.Path == "" {
			return fmt.Errorf("ARCHIVE_PATH is required for the %s backend", BackendFile)
		}
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("MONGODB_URI is required for the %s backend", BackendMongo)
		}
	case BackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required for the %s backend", BackendRedis)
		}
	case BackendMinIO:
		if err := c.MinIO.Validate(); err != nil {
			return fmt.Errorf("%s backend: %w", BackendMinIO, err)
		}
	default:
		return fmt.Errorf("unknown ARCHIVE_BACKEND %q", c.Archive.Backend)
	}
	if c.Archive.LoanDays <= 0 {
		return fmt.Errorf("ARCHIVE_LOAN_DAYS must be positive, got %d", c.Archive.LoanDays)
	}
	if c.RateLimit.UseRedis && c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required when RATE_LIMIT_USE_REDIS is set")
	}
	return nil
}
