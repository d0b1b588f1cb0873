// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engerrors "github.com/Fatal777/Loan-Eligibility-Engine/internal/common/errors"
)

func validEngineConfig() EngineConfig {
	return EngineConfig{
		ChunkSize:         100,
		Workers:           2,
		BucketBoundaries:  []int{300, 500, 650, 750, 900},
		ApproveThreshold:  70,
		ReviewThreshold:   50,
		ClaimLease:        300000,
		ChunkMaxRetries:   3,
		ChunkRetryBackoff: 200,
		CatalogCacheTTL:   300000,
	}
}

func TestValidateEngineConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*EngineConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(e *EngineConfig) {},
		},
		{
			name:    "chunk size zero",
			mutate:  func(e *EngineConfig) { e.ChunkSize = 0 },
			wantErr: "chunk_size",
		},
		{
			name:    "approve threshold above 100",
			mutate:  func(e *EngineConfig) { e.ApproveThreshold = 110 },
			wantErr: "approve_threshold",
		},
		{
			name:    "review threshold negative",
			mutate:  func(e *EngineConfig) { e.ReviewThreshold = -1 },
			wantErr: "review_threshold",
		},
		{
			name: "review not below approve",
			mutate: func(e *EngineConfig) {
				e.ApproveThreshold = 50
				e.ReviewThreshold = 50
			},
			wantErr: "must be below",
		},
		{
			name:    "single bucket boundary",
			mutate:  func(e *EngineConfig) { e.BucketBoundaries = []int{300} },
			wantErr: "bucket_boundaries",
		},
		{
			name:    "boundaries not increasing",
			mutate:  func(e *EngineConfig) { e.BucketBoundaries = []int{300, 650, 650, 900} },
			wantErr: "strictly increasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEngineConfig()
			tt.mutate(&e)

			err := validateEngineConfig(&e)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfigRequiresEscalationBaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Database = "loan_engine"
	cfg.Database.Postgres.User = "engine"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Engine = validEngineConfig()
	cfg.Escalation.Timeout = 10000
	cfg.Escalation.MaxConcurrency = 8

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalation.base_url")

	cfg.Escalation.BaseURL = "https://judgments.example.com"
	assert.NoError(t, validateConfig(cfg))
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 100, cfg.Engine.ChunkSize)
	assert.Equal(t, 1, cfg.Engine.Workers)
	assert.Equal(t, []int{300, 500, 650, 750, 900}, cfg.Engine.BucketBoundaries)
	assert.Equal(t, 70, cfg.Engine.ApproveThreshold)
	assert.Equal(t, 50, cfg.Engine.ReviewThreshold)
	assert.Equal(t, 300000, cfg.Engine.ClaimLease)
	assert.Equal(t, 8, cfg.Escalation.MaxConcurrency)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("ESCALATION_API_KEY", "secret-from-env")

	path := writeConfigFile(t, `
database:
  postgres:
    host: localhost
    port: 5432
    database: loan_engine
    user: engine
  redis:
    address: localhost:6379

engine:
  chunk_size: 25
  approve_threshold: 75
  review_threshold: 55

escalation:
  base_url: https://judgments.example.com
  api_key: ${ESCALATION_API_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "loan_engine", cfg.Database.Postgres.Database)
	assert.Equal(t, 25, cfg.Engine.ChunkSize)
	assert.Equal(t, 75, cfg.Engine.ApproveThreshold)
	assert.Equal(t, 55, cfg.Engine.ReviewThreshold)
	assert.Equal(t, "secret-from-env", cfg.Escalation.APIKey)

	// Unset knobs fall back to defaults.
	assert.Equal(t, []int{300, 500, 650, 750, 900}, cfg.Engine.BucketBoundaries)
	assert.Equal(t, 8, cfg.Escalation.MaxConcurrency)
}

func TestLoadFromFileInvalidConfig(t *testing.T) {
	path := writeConfigFile(t, `
database:
  postgres:
    host: localhost
    database: loan_engine
    user: engine
  redis:
    address: localhost:6379

engine:
  approve_threshold: 60
  review_threshold: 60

escalation:
  base_url: https://judgments.example.com
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)

	var engErr *engerrors.EngineError
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, engerrors.ErrCodeInvalidConfig, engErr.Code)
	assert.False(t, engErr.Retryable)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, GetDuration(200))
	assert.Equal(t, 5*time.Minute, GetDuration(300000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
