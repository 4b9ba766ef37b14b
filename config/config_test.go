package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TROLLEYWISE_TESCO_API_KEY", "test-tesco-key")
	t.Setenv("TROLLEYWISE_EMBEDDING_API_KEY", "test-embedding-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-tesco-key", cfg.Tesco.APIKey, "env-only key must bind without a config file")
	assert.Equal(t, "test-embedding-key", cfg.Embedding.APIKey)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "https://api.tesco.com/shoppingexperience", cfg.Tesco.Endpoint)
	assert.Equal(t, 20*time.Second, cfg.Tesco.Timeout)
	assert.Equal(t, 3, cfg.Tesco.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Tesco.MinDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Tesco.MaxDelay)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 100, cfg.Matching.CandidateCount)
	assert.Equal(t, 95.0, cfg.Matching.EscalationThreshold)
	assert.Equal(t, 0.6, cfg.Matching.ConsolidationThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Matching.CacheTTL)
	assert.Equal(t, 100, cfg.OpenFoodFacts.RatePerMin)
	assert.Equal(t, 1, cfg.Batch.Workers)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TROLLEYWISE_SERVER_PORT", "9090")
	t.Setenv("TROLLEYWISE_MATCHING_CANDIDATE_COUNT", "25")
	t.Setenv("TROLLEYWISE_BATCH_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Matching.CandidateCount)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoad_MissingTescoKey(t *testing.T) {
	t.Setenv("TROLLEYWISE_TESCO_API_KEY", "")
	t.Setenv("TROLLEYWISE_EMBEDDING_API_KEY", "test-embedding-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TROLLEYWISE_TESCO_API_KEY")
}

func TestLoad_MissingEmbeddingKey(t *testing.T) {
	t.Setenv("TROLLEYWISE_TESCO_API_KEY", "test-tesco-key")
	t.Setenv("TROLLEYWISE_EMBEDDING_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TROLLEYWISE_EMBEDDING_API_KEY")
}

func TestLoad_InvalidEscalationThreshold(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TROLLEYWISE_MATCHING_ESCALATION_THRESHOLD", "150")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escalation threshold")
}

func TestLoad_InvalidWorkers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TROLLEYWISE_BATCH_WORKERS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}
