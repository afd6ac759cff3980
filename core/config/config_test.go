package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, []string{"github", "yml_remote"}, cfg.Providers.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Providers.Timeout())
	assert.Equal(t, 4, cfg.Reconcile.Workers)
	assert.Equal(t, time.Hour, cfg.Reconcile.Interval)
	assert.False(t, cfg.Reconcile.DryRun)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("PROVIDERS_ENABLED", "yml_remote, gitlab ,")
	t.Setenv("RECONCILE_DRY_RUN", "true")
	t.Setenv("RECONCILE_INTERVAL", "0")
	t.Setenv("DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"yml_remote", "gitlab"}, cfg.Providers.Enabled)
	assert.True(t, cfg.Reconcile.DryRun)
	assert.Equal(t, time.Duration(0), cfg.Reconcile.Interval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfig_EmptyEnabledSet(t *testing.T) {
	t.Setenv("PROVIDERS_ENABLED", "")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers.Enabled)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVER_PORT=9090\nRECONCILE_WORKERS=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("RECONCILE_WORKERS")
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Reconcile.Workers)
}

func TestResolveSecret(t *testing.T) {
	t.Run("Inline value with expansion", func(t *testing.T) {
		t.Setenv("GH_TOKEN_TEST", "abc123")
		got, err := ResolveSecret("${GH_TOKEN_TEST}", "")
		require.NoError(t, err)
		assert.Equal(t, "abc123", got)
	})

	t.Run("File fallback", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "token")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0o600))
		got, err := ResolveSecret("", path)
		require.NoError(t, err)
		assert.Equal(t, "from-file", got)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := ResolveSecret("", filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("Nothing configured", func(t *testing.T) {
		got, err := ResolveSecret("", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
