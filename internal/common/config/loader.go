// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like ESCALATION_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ LOAD BASE CONFIG
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ LOAD ENV CONFIG
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3️⃣ EXPAND ENV PLACEHOLDERS
	expandEnvVars(viper.GetViper())

	// 4️⃣ Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5️⃣ DIRECT OVERRIDE IF STILL EMPTY
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, engerrors.NewInvalidConfigError(err.Error())
	}

	return &cfg, nil
}

// Load .env from multiple possible locations
func loadEnvFile() {
	// Try multiple paths (for running from different directories)
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up
		"../../../.env", // Three levels up (package tests)
	}

	// Also try to find project root by looking for go.mod
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf("⚠️  .env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up directories looking for go.mod
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		// Only process string values
		if strVal, ok := val.(string); ok {
			// Check if it contains environment variable pattern
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	// Judgment service
	if cfg.Escalation.APIKey == "" {
		if val := os.Getenv("ESCALATION_API_KEY"); val != "" {
			cfg.Escalation.APIKey = val
		}
	}
	if cfg.Escalation.BaseURL == "" {
		if val := os.Getenv("ESCALATION_BASE_URL"); val != "" {
			cfg.Escalation.BaseURL = val
		}
	}

	// Completion signal
	if cfg.Notifications.SNS.TopicARN == "" {
		if val := os.Getenv("SNS_TOPIC_ARN"); val != "" {
			cfg.Notifications.SNS.TopicARN = val
		}
	}

	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, engerrors.NewInvalidConfigError(err.Error())
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Engine defaults
	if cfg.Engine.ChunkSize == 0 {
		cfg.Engine.ChunkSize = 100
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 1
	}
	if len(cfg.Engine.BucketBoundaries) == 0 {
		cfg.Engine.BucketBoundaries = []int{300, 500, 650, 750, 900}
	}
	if cfg.Engine.ApproveThreshold == 0 {
		cfg.Engine.ApproveThreshold = 70
	}
	if cfg.Engine.ReviewThreshold == 0 {
		cfg.Engine.ReviewThreshold = 50
	}
	if cfg.Engine.ClaimLease == 0 {
		cfg.Engine.ClaimLease = 300000
	}
	if cfg.Engine.ChunkMaxRetries == 0 {
		cfg.Engine.ChunkMaxRetries = 3
	}
	if cfg.Engine.ChunkRetryBackoff == 0 {
		cfg.Engine.ChunkRetryBackoff = 200
	}
	if cfg.Engine.CatalogCacheTTL == 0 {
		cfg.Engine.CatalogCacheTTL = 300000
	}

	// Escalation defaults
	if cfg.Escalation.Timeout == 0 {
		cfg.Escalation.Timeout = 10000
	}
	if cfg.Escalation.MaxRetries == 0 {
		cfg.Escalation.MaxRetries = 3
	}
	if cfg.Escalation.MaxConcurrency == 0 {
		cfg.Escalation.MaxConcurrency = 8
	}
	if cfg.Escalation.BreakerThreshold == 0 {
		cfg.Escalation.BreakerThreshold = 5
	}
	if cfg.Escalation.BreakerCooldown == 0 {
		cfg.Escalation.BreakerCooldown = 30000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if err := validateEngineConfig(&cfg.Engine); err != nil {
		return err
	}

	if cfg.Escalation.BaseURL == "" {
		return fmt.Errorf("escalation.base_url is required")
	}
	if cfg.Escalation.MaxConcurrency < 1 {
		return fmt.Errorf("escalation.max_concurrency must be at least 1")
	}
	if cfg.Escalation.Timeout < 1 {
		return fmt.Errorf("escalation.timeout must be positive")
	}

	return nil
}

// validateEngineConfig rejects pipeline knobs that would silently corrupt
// matching decisions. Startup fails loudly instead.
func validateEngineConfig(e *EngineConfig) error {
	if e.ChunkSize < 1 {
		return fmt.Errorf("engine.chunk_size must be at least 1")
	}
	if e.ApproveThreshold < 0 || e.ApproveThreshold > 100 {
		return fmt.Errorf("engine.approve_threshold must be within 0..100, got %d", e.ApproveThreshold)
	}
	if e.ReviewThreshold < 0 || e.ReviewThreshold > 100 {
		return fmt.Errorf("engine.review_threshold must be within 0..100, got %d", e.ReviewThreshold)
	}
	if e.ReviewThreshold >= e.ApproveThreshold {
		return fmt.Errorf("engine.review_threshold (%d) must be below engine.approve_threshold (%d)",
			e.ReviewThreshold, e.ApproveThreshold)
	}
	if len(e.BucketBoundaries) < 2 {
		return fmt.Errorf("engine.bucket_boundaries needs at least two boundaries")
	}
	for i := 1; i < len(e.BucketBoundaries); i++ {
		if e.BucketBoundaries[i] <= e.BucketBoundaries[i-1] {
			return fmt.Errorf("engine.bucket_boundaries must be strictly increasing, got %v", e.BucketBoundaries)
		}
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
