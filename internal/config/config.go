package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the CloudFace API.
type Config struct {
	Server     ServerConfig
	Postgres   PostgresConfig
	Provider   ProviderConfig
	Storage    StorageConfig
	Ingest     IngestConfig
	FaceEngine FaceEngineConfig
	Progress   ProgressConfig
	Auth       AuthConfig
	Metrics    MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details for the primary event store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ProviderConfig carries connection details for the external photo provider,
// an S3-compatible object store holding the source photo folders.
type ProviderConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// StorageConfig locates the on-disk photo storage tree.
type StorageConfig struct {
	// Root is the directory holding events/, uploads/, downloads/ and sessions/.
	Root string
	// EventTTL is the fixed lifetime of an event, set once at creation.
	EventTTL time.Duration
}

// IngestConfig tunes the batch ingestion coordinator.
type IngestConfig struct {
	Workers        int
	MaxFolderDepth int
}

// FaceEngineConfig points at the external face indexing engine.
type FaceEngineConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ProgressConfig selects the progress sink backend.
type ProgressConfig struct {
	// RedisAddr enables the Redis sink when non-empty; otherwise progress is
	// tracked in process memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
	ShareLinkSecret    string
	ShareLinkTTL       time.Duration
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("CLOUDFACE_API_HOST", "0.0.0.0"),
			Port:         getInt("CLOUDFACE_API_PORT", 8080),
			ReadTimeout:  getDuration("CLOUDFACE_API_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("CLOUDFACE_API_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("CLOUDFACE_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "cloudface_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "cloudface"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		Provider: ProviderConfig{
			Endpoint:        getString("PROVIDER_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("PROVIDER_ACCESS_KEY", "cloudface"),
			SecretAccessKey: getString("PROVIDER_SECRET_KEY", "change-me-strong-password"),
			Bucket:          getString("PROVIDER_BUCKET", "photo-folders"),
			UseSSL:          getBool("PROVIDER_USE_SSL", false),
			Region:          getString("PROVIDER_REGION", ""),
		},
		Storage: StorageConfig{
			Root:     getString("CLOUDFACE_STORAGE_ROOT", "storage"),
			EventTTL: getDuration("CLOUDFACE_EVENT_TTL", 30*24*time.Hour),
		},
		Ingest: IngestConfig{
			Workers:        getInt("CLOUDFACE_INGEST_WORKERS", 8),
			MaxFolderDepth: getInt("CLOUDFACE_INGEST_MAX_DEPTH", 5),
		},
		FaceEngine: FaceEngineConfig{
			BaseURL: getString("FACE_ENGINE_URL", "http://localhost:9090"),
			Timeout: getDuration("FACE_ENGINE_TIMEOUT", 30*time.Second),
		},
		Progress: ProgressConfig{
			RedisAddr:     getString("PROGRESS_REDIS_ADDR", ""),
			RedisPassword: getString("PROGRESS_REDIS_PASSWORD", ""),
			RedisDB:       getInt("PROGRESS_REDIS_DB", 0),
			TTL:           getDuration("PROGRESS_TTL", time.Hour),
		},
		Auth: loadAuthConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("CLOUDFACE_METRICS_PATH", "/metrics"),
		},
	}

	if cfg.Ingest.Workers < 1 {
		cfg.Ingest.Workers = 1
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("CLOUDFACE_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("CLOUDFACE_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("CLOUDFACE_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("CLOUDFACE_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("CLOUDFACE_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
		ShareLinkSecret:    getString("CLOUDFACE_SHARE_LINK_SECRET", "change-me-share-link-secret"),
		ShareLinkTTL:       getDuration("CLOUDFACE_SHARE_LINK_TTL", 30*24*time.Hour),
	}
}
