package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, 0.65, cfg.Tunables.ClusterThreshold)
	assert.Equal(t, 0.75, cfg.Tunables.PlacementThreshold)
	assert.Equal(t, 5, cfg.Tunables.TopK)
	assert.Equal(t, 5, cfg.Tunables.ContextChunks)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
}

func TestLoad(t *testing.T) {
	t.Run("NoFileUsesDefaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Tunables, cfg.Tunables)
	})

	t.Run("MissingFileFails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := writeConfig(t, `
environment: production
tunables:
  cluster_threshold: 0.5
  placement_threshold: 0.8
  top_k: 3
  context_chunks: 2
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Production, cfg.Environment)
		assert.Equal(t, 0.5, cfg.Tunables.ClusterThreshold)
		assert.Equal(t, 3, cfg.Tunables.TopK)
		// Untouched sections keep defaults.
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		path := writeConfig(t, "tunables:\n  cluster_threshold: 0.5\n  placement_threshold: 0.8\n  top_k: 3\n  context_chunks: 2\n")
		t.Setenv("IDEAGRAPH_CLUSTER_THRESHOLD", "0.9")
		t.Setenv("IDEAGRAPH_LLM_USE_MOCK", "true")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 0.9, cfg.Tunables.ClusterThreshold)
		assert.True(t, cfg.LLM.UseMock)
	})

	t.Run("InvalidValuesRejected", func(t *testing.T) {
		path := writeConfig(t, "tunables:\n  cluster_threshold: 1.5\n  placement_threshold: 0.8\n  top_k: 3\n  context_chunks: 2\n")
		_, err := Load(path)
		assert.Error(t, err)

		path = writeConfig(t, "logging:\n  level: loud\n")
		_, err = Load(path)
		assert.Error(t, err)
	})
}

func TestWatcher(t *testing.T) {
	path := writeConfig(t, "tunables:\n  cluster_threshold: 0.65\n  placement_threshold: 0.75\n  top_k: 5\n  context_chunks: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, cfg.Tunables, nil)
	require.NoError(t, err)
	defer w.Stop()

	updates := make(chan TunablesConfig, 1)
	w.OnChange(func(tc TunablesConfig) {
		select {
		case updates <- tc:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("tunables:\n  cluster_threshold: 0.7\n  placement_threshold: 0.75\n  top_k: 7\n  context_chunks: 5\n"), 0o644))

	select {
	case tc := <-updates:
		assert.Equal(t, 0.7, tc.ClusterThreshold)
		assert.Equal(t, 7, tc.TopK)
		assert.Equal(t, tc, w.Tunables())
	case <-time.After(5 * time.Second):
		t.Fatal("tunables reload not observed")
	}
}

func TestWatcherRejectsInvalidReload(t *testing.T) {
	path := writeConfig(t, "tunables:\n  cluster_threshold: 0.65\n  placement_threshold: 0.75\n  top_k: 5\n  context_chunks: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, cfg.Tunables, nil)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("tunables:\n  cluster_threshold: 9.0\n"), 0o644))

	// The invalid file must never surface; give the debounce time to fire.
	time.Sleep(2 * debounceDelay)
	assert.Equal(t, 0.65, w.Tunables().ClusterThreshold)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
