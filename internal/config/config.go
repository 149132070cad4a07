package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // e.g. "5m", "1h"
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // e.g. "10m", "30m"
}

// StorageConfig selects the record store backend
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// CacheConfig holds the read-through cache configuration
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     int           `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout    int           `mapstructure:"write_timeout"` // in seconds, 0 keeps event streams open
	IdleTimeout     int           `mapstructure:"idle_timeout"`  // in seconds
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	StreamKeepAlive time.Duration `mapstructure:"stream_keepalive"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey  string        `mapstructure:"jwt_public_key"`
	WalletMaxSkew time.Duration `mapstructure:"wallet_max_skew"`
}

// WebhookConfig holds outbound webhook configuration
type WebhookConfig struct {
	URLs                 []string      `mapstructure:"urls"`
	Secret               string        `mapstructure:"secret"`
	MaxRetries           uint64        `mapstructure:"max_retries"`
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval"`
	Workers              int           `mapstructure:"workers"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// NotifierConfig holds the per-sink queue configuration
type NotifierConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// RateLimitConfig holds per-client request throttling settings
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// APIConfig holds configuration for the registry API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Storage    StorageConfig   `mapstructure:"storage"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Cache      CacheConfig     `mapstructure:"cache"`
	NATS       NATSConfig      `mapstructure:"nats"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Webhook    WebhookConfig   `mapstructure:"webhook"`
	Notifier   NotifierConfig  `mapstructure:"notifier"`
	RateLimit  RateLimitConfig `mapstructure:"ratelimit"`
}

// AuditConsumerConfig holds configuration for audit-consumer
type AuditConsumerConfig struct {
	BaseConfig  `mapstructure:",squash"`
	NATS        NATSConfig    `mapstructure:"nats"`
	RegistryURL string        `mapstructure:"registry_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	Backfill    bool          `mapstructure:"backfill"`
}

// Validate checks settings that cannot be defaulted
func (c *APIConfig) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendMemory:
	case StorageBackendPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return errors.New("database.host and database.dbname are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if len(c.Webhook.URLs) > 0 && c.Webhook.Secret == "" {
		return errors.New("webhook.secret is required when webhook.urls is set")
	}
	if c.Notifier.QueueSize <= 0 {
		return errors.New("notifier.queue_size must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("ratelimit.requests_per_second must be positive when enabled")
	}

	return nil
}

// Validate checks settings that cannot be defaulted
func (c *AuditConsumerConfig) Validate() error {
	if c.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if c.Backfill && c.RegistryURL == "" {
		return errors.New("registry_url is required when backfill is enabled")
	}
	return nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.stream_keepalive", "15s")
	v.SetDefault("storage.backend", StorageBackendMemory)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("cache.cleanup_interval", "5m")
	setNATSDefaults(v)
	v.SetDefault("auth.wallet_max_skew", "5m")
	v.SetDefault("webhook.max_retries", 5)
	v.SetDefault("webhook.retry_initial_interval", "500ms")
	v.SetDefault("webhook.workers", 4)
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("notifier.queue_size", 1024)
	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_second", 20)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("ratelimit.idle_ttl", "10m")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadAuditConsumerConfig loads configuration for audit-consumer
func LoadAuditConsumerConfig(configFile string, envPath string) (*AuditConsumerConfig, error) {
	v := configureViper("audit-consumer", configFile, envPath)

	v.SetDefault("debug", false)
	setNATSDefaults(v)
	v.SetDefault("nats.consumer_name", "drug-auditor")
	v.SetDefault("registry_url", "http://localhost:8080")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("backfill", true)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg AuditConsumerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.stream_name", "DRUGS")
	v.SetDefault("nats.subject_prefix", "drugs")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "drug-registry")
	v.SetDefault("nats.ack_wait", "30s")
	v.SetDefault("nats.max_deliver", 5)
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use environment variables
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search order: current directory, service directory (e.g. cmd/api/), config directory
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("DRUG_REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables.
// Viper only maps env vars onto struct fields for keys it already knows about.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_origins",
		"server.stream_keepalive",
		// Storage
		"storage.backend",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Cache
		"cache.enabled",
		"cache.ttl",
		"cache.cleanup_interval",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		// Auth
		"auth.jwt_public_key",
		"auth.wallet_max_skew",
		// Webhook
		"webhook.urls",
		"webhook.secret",
		"webhook.max_retries",
		"webhook.retry_initial_interval",
		"webhook.workers",
		"webhook.timeout",
		// Notifier
		"notifier.queue_size",
		// Rate limit
		"ratelimit.enabled",
		"ratelimit.requests_per_second",
		"ratelimit.burst",
		"ratelimit.idle_ttl",
		// Audit consumer
		"registry_url",
		"http_timeout",
		"backfill",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
