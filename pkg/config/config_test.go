package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().ContextSizes, cfg.ContextSizes)
	assert.Equal(t, 300.0, cfg.CostCapUSD)
}

func TestLoadReadsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cost_cap_usd": 50, "batch_count": 10}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.CostCapUSD)
	assert.Equal(t, 10, cfg.BatchCount)
}

func TestEnvOverridesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cost_cap_usd": 50}`), 0o644))

	t.Setenv("MEMORYBENCH_COST_CAP_USD", "99.5")
	t.Setenv("CONTEXT_SIZES", "10, 20,30")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99.5, cfg.CostCapUSD)
	assert.Equal(t, []int{10, 20, 30}, cfg.ContextSizes)
}

func TestDebugDomainSetSplitsOnComma(t *testing.T) {
	cfg := Default()
	cfg.DebugDomains = "batching, stats,logger"
	set := cfg.DebugDomainSet()
	assert.True(t, set["batching"])
	assert.True(t, set["stats"])
	assert.True(t, set["logger"])
	assert.False(t, set["evaluator"])
}
