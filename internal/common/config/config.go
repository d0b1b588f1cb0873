// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Engine        EngineConfig       `mapstructure:"engine"`
	Escalation    EscalationConfig   `mapstructure:"escalation"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EngineConfig holds the matching pipeline settings. Every knob is an
// explicit typed field; there is no pass-through map of loose values.
type EngineConfig struct {
	ChunkSize         int   `mapstructure:"chunk_size"`
	Workers           int   `mapstructure:"workers"`
	BucketBoundaries  []int `mapstructure:"bucket_boundaries"`
	ApproveThreshold  int   `mapstructure:"approve_threshold"`
	ReviewThreshold   int   `mapstructure:"review_threshold"`
	ClaimLease        int   `mapstructure:"claim_lease"`         // milliseconds
	ChunkMaxRetries   int   `mapstructure:"chunk_max_retries"`   // persistence retry budget per chunk
	ChunkRetryBackoff int   `mapstructure:"chunk_retry_backoff"` // milliseconds, base for exponential backoff
	CatalogCacheTTL   int   `mapstructure:"catalog_cache_ttl"`   // milliseconds
}

// EscalationConfig holds settings for the external judgment service.
type EscalationConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	Timeout          int    `mapstructure:"timeout"` // milliseconds, hard per-call budget
	MaxRetries       int    `mapstructure:"max_retries"`
	MaxConcurrency   int    `mapstructure:"max_concurrency"`
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	BreakerCooldown  int    `mapstructure:"breaker_cooldown"` // milliseconds
}

// NotificationConfig holds settings for the batch-completion signal.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
