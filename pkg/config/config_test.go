package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope", "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "~/.contextkit", cfg.Workspace)
	assert.Equal(t, "default", cfg.AgentID)
	assert.True(t, cfg.Memory.Enabled)
	assert.Equal(t, 128000, cfg.Budget.ContextWindowTokens)
	assert.Equal(t, 3, cfg.Budget.RecentPairsToKeep)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"agent_id": "ops",
		"memory": {"enabled": true, "recall_top_k": 9},
		"budget": {"context_window_tokens": 32000}
	}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.AgentID)
	assert.Equal(t, 9, cfg.Memory.RecallTopK)
	assert.Equal(t, 32000, cfg.Budget.ContextWindowTokens)
	// Untouched fields keep their defaults.
	assert.Equal(t, "~/.contextkit", cfg.Workspace)
	assert.Equal(t, 0.6, cfg.Index.HybridWeight)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agent_id": "from-file"}`), 0o600))
	t.Setenv("CONTEXTKIT_AGENT_ID", "from-env")
	t.Setenv("CONTEXTKIT_MEMORY_MMR_LAMBDA", "0.4")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AgentID)
	assert.Equal(t, 0.4, cfg.Memory.MMRLambda)
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.AgentID = "saved"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.AgentID)
	assert.Equal(t, cfg.Memory, loaded.Memory)
}

func TestWorkspacePathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(home, ".contextkit"), cfg.WorkspacePath())

	cfg.Workspace = "/var/lib/contextkit"
	assert.Equal(t, "/var/lib/contextkit", cfg.WorkspacePath())
}

func TestSettingsConversions(t *testing.T) {
	cfg := DefaultConfig()
	mem := cfg.MemorySettings()
	assert.Equal(t, cfg.Memory.RecallTopK, mem.RecallTopK)
	assert.Equal(t, cfg.Memory.MMRLambda, mem.MMRLambda)

	idx := cfg.IndexSettings()
	assert.Equal(t, "contextkit", idx.Name)
	assert.Equal(t, cfg.Index.K1, idx.K1)
	assert.Equal(t, cfg.Index.B, idx.B)
}
