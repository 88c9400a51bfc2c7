package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	// URL is a Postgres DSN. Empty means the in-memory stats store.
	URL string
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	UploadPerHour int
	EnqueuePerMin int
}

// StorageConfig configures the S3-compatible blob store for uploaded
// log files. When the credentials are empty the server falls back to
// a local-directory store served under /files.
type StorageConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	LocalDir        string
}

type IngestConfig struct {
	// WatchKeywords are substrings tracked within log messages
	WatchKeywords []string
	// Concurrency is the worker pool size
	Concurrency int
	// MaxAttempts caps retries for a failing job
	MaxAttempts int
	// RetryBaseDelay is the first backoff delay; it doubles per attempt
	RetryBaseDelay time.Duration
	// PriorityThreshold in bytes: files below it get the small tier
	PriorityThreshold int64
	// DispatchRatePerSec caps total job dispatch throughput
	DispatchRatePerSec int
	// ProgressBatchLines is how many lines between progress events
	ProgressBatchLines int
	// JobTimeout bounds the fetch-and-parse of a single attempt
	JobTimeout time.Duration
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("DATABASE_URL")
	readSecret("JWT_SECRET")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = viper.BindEnv("ratelimit.enqueue_per_min", "RATELIMIT_ENQUEUE_PER_MIN")
	_ = viper.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = viper.BindEnv("ingest.watch_keywords", "WATCH_KEYWORDS")
	_ = viper.BindEnv("ingest.concurrency", "INGEST_CONCURRENCY")
	_ = viper.BindEnv("ingest.max_attempts", "INGEST_MAX_ATTEMPTS")
	_ = viper.BindEnv("ingest.retry_base_delay_ms", "INGEST_RETRY_BASE_DELAY_MS")
	_ = viper.BindEnv("ingest.priority_threshold", "INGEST_PRIORITY_THRESHOLD")
	_ = viper.BindEnv("ingest.dispatch_rate_per_sec", "INGEST_DISPATCH_RATE_PER_SEC")
	_ = viper.BindEnv("ingest.progress_batch_lines", "INGEST_PROGRESS_BATCH_LINES")
	_ = viper.BindEnv("ingest.job_timeout_sec", "INGEST_JOB_TIMEOUT_SEC")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("database.url", "")
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("ratelimit.upload_per_hour", 50)
	viper.SetDefault("ratelimit.enqueue_per_min", 60)
	viper.SetDefault("storage.bucket_name", "logs")
	viper.SetDefault("storage.local_dir", "./data/logs")
	viper.SetDefault("ingest.watch_keywords", "")
	viper.SetDefault("ingest.concurrency", 4)
	viper.SetDefault("ingest.max_attempts", 3)
	viper.SetDefault("ingest.retry_base_delay_ms", 1000)
	viper.SetDefault("ingest.priority_threshold", 1024*1024)
	viper.SetDefault("ingest.dispatch_rate_per_sec", 100)
	viper.SetDefault("ingest.progress_batch_lines", 100)
	viper.SetDefault("ingest.job_timeout_sec", 600)
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("database.url"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
			EnqueuePerMin: viper.GetInt("ratelimit.enqueue_per_min"),
		},
		Storage: StorageConfig{
			AccountID:       viper.GetString("storage.account_id"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
			LocalDir:        viper.GetString("storage.local_dir"),
		},
		Ingest: IngestConfig{
			WatchKeywords:      splitKeywords(viper.GetString("ingest.watch_keywords")),
			Concurrency:        viper.GetInt("ingest.concurrency"),
			MaxAttempts:        viper.GetInt("ingest.max_attempts"),
			RetryBaseDelay:     time.Duration(viper.GetInt("ingest.retry_base_delay_ms")) * time.Millisecond,
			PriorityThreshold:  viper.GetInt64("ingest.priority_threshold"),
			DispatchRatePerSec: viper.GetInt("ingest.dispatch_rate_per_sec"),
			ProgressBatchLines: viper.GetInt("ingest.progress_batch_lines"),
			JobTimeout:         time.Duration(viper.GetInt("ingest.job_timeout_sec")) * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}

// splitKeywords parses the WATCH_KEYWORDS comma list, dropping empty entries
func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}
