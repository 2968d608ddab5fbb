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
	cfg := Default("/home/op")

	assert.Equal(t, "/home/op/.claude/accounts/cc-hotswap-cookies", cfg.CookieDir)
	assert.Equal(t, "/home/op/.claude/accounts", cfg.AccountDir)
	assert.Equal(t, "https://claude.ai/settings", cfg.SettingsURL)
	assert.Equal(t, "https://claude.ai/api/organizations", cfg.VerifyURL)
	assert.Equal(t, "sessionKey", cfg.CookieName)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 30*time.Second, cfg.Daemon.NavigationTimeout)
	assert.Equal(t, 60*time.Second, cfg.OneShot.NavigationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Login.Deadline)
	assert.True(t, cfg.Headless)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default("/h")

	assert.Equal(t, filepath.Join(cfg.CookieDir, "browser-state"), cfg.StateDir())
	assert.Equal(t, filepath.Join(cfg.CookieDir, "daemon.log"), cfg.LogPath())
	assert.Equal(t, filepath.Join(cfg.CookieDir, "status.yaml"), cfg.StatusPath())
	assert.Equal(t, filepath.Join(cfg.CookieDir, "daemon.lock"), cfg.LockPath())
}

func TestLoad(t *testing.T) {
	t.Run("environment overrides directories", func(t *testing.T) {
		cookieDir := t.TempDir()
		acctDir := t.TempDir()
		t.Setenv(EnvCookieDir, cookieDir)
		t.Setenv(EnvAccountDir, acctDir)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, cookieDir, cfg.CookieDir)
		assert.Equal(t, acctDir, cfg.AccountDir)
	})

	t.Run("falls back to home directory", func(t *testing.T) {
		t.Setenv(EnvCookieDir, "")
		t.Setenv(EnvAccountDir, "")

		cfg, err := Load()
		require.NoError(t, err)

		home, _ := os.UserHomeDir()
		assert.Equal(t, filepath.Join(home, ".claude", "accounts"), cfg.AccountDir)
	})
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := Default(root)

	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.CookieDir, cfg.StateDir(), cfg.AccountDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
