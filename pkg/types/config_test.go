// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestDefaultAppConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.Equal(t, 3, cfg.Critic.MaxRetries)
	assert.Equal(t, time.Second, cfg.Critic.RetryBaseDelay)
	assert.Equal(t, 4, cfg.Analysis.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Analysis.Debounce)
	assert.Equal(t, 2*time.Second, cfg.Persistence.SaveDebounce)
	assert.Equal(t, DriverSQLite, cfg.Persistence.Driver)
}

func TestCriticConfigYAMLInlinesAIConfig(t *testing.T) {
	var cfg CriticConfig
	require.NoError(t, yaml.Unmarshal([]byte("model: m\nmax_retries: 5\nbackend: claude\n"), &cfg))
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, BackendClaude, cfg.Backend)
}

func TestParseSternness(t *testing.T) {
	for in, want := range map[string]Sternness{
		"gentle":     SternnessGentle,
		" Standard ": SternnessStandard,
		"HARSH":      SternnessHarsh,
	} {
		got, err := ParseSternness(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseSternness("brutal")
	assert.Error(t, err)
}
