// Package config holds the settings shared by the cookie daemon and the
// one-shot refresh tool. A Config is built once at startup and passed
// explicitly to every component; there is no global configuration state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Environment variables that override the default directories.
const (
	EnvCookieDir  = "CC_HOTSWAP_DIR"
	EnvAccountDir = "CC_HOTSWAP_ACCT_DIR"
)

// Fixed endpoints and identifiers for the external site.
const (
	DefaultBaseURL      = "https://claude.ai"
	DefaultSettingsPath = "/settings"
	DefaultVerifyPath   = "/api/organizations"
	DefaultCookieName   = "sessionKey"
	DefaultUnauthorized = "Invalid authorization"
	DefaultContextAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
	DefaultVerifyAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	DefaultLogMaxBytes  = 1024 * 1024
	DefaultLogKeepLines = 500
	stateDirName        = "browser-state"
	logFileName         = "daemon.log"
	statusFileName      = "status.yaml"
	lockFileName        = "daemon.lock"
)

// Timing groups the fixed delays and timeouts of one refresh flavour.
type Timing struct {
	// NavigationTimeout bounds the page load.
	NavigationTimeout time.Duration

	// SettleDelay is waited after navigation before inspecting the page.
	SettleDelay time.Duration

	// ChallengeDelay is waited once when a bot-challenge page is detected.
	ChallengeDelay time.Duration
}

// LoginTiming configures the interactive init flow.
type LoginTiming struct {
	NavigationTimeout time.Duration
	SettleDelay       time.Duration
	PollInterval      time.Duration
	Deadline          time.Duration
	ProgressEvery     time.Duration
	SaveDelay         time.Duration
}

// Config is the complete runtime configuration.
type Config struct {
	// CookieDir holds browser-state snapshots, the daemon log and status.
	CookieDir string

	// AccountDir holds the bare session-<name>.key token files.
	AccountDir string

	BaseURL      string
	SettingsURL  string
	VerifyURL    string
	CookieName   string
	Unauthorized string

	// ContextUserAgent is presented by browser contexts; VerifyUserAgent by
	// the direct API verification request.
	ContextUserAgent string
	VerifyUserAgent  string

	VerifyTimeout time.Duration

	// Daemon is used by the long-running scheduler, OneShot by batch refresh.
	Daemon  Timing
	OneShot Timing
	Login   LoginTiming

	RefreshInterval time.Duration
	LogMaxBytes     int64
	LogKeepLines    int

	// Headless controls the browser mode of the daemon and batch refresh.
	// The init flow is always headed.
	Headless bool
}

// Default returns the configuration with every fixed value filled in and
// directories rooted under home.
func Default(home string) *Config {
	cookieDir := filepath.Join(home, ".claude", "accounts", "cc-hotswap-cookies")
	return &Config{
		CookieDir:        cookieDir,
		AccountDir:       filepath.Join(home, ".claude", "accounts"),
		BaseURL:          DefaultBaseURL,
		SettingsURL:      DefaultBaseURL + DefaultSettingsPath,
		VerifyURL:        DefaultBaseURL + DefaultVerifyPath,
		CookieName:       DefaultCookieName,
		Unauthorized:     DefaultUnauthorized,
		ContextUserAgent: DefaultContextAgent,
		VerifyUserAgent:  DefaultVerifyAgent,
		VerifyTimeout:    10 * time.Second,
		Daemon: Timing{
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       3 * time.Second,
			ChallengeDelay:    10 * time.Second,
		},
		OneShot: Timing{
			NavigationTimeout: 60 * time.Second,
			SettleDelay:       5 * time.Second,
			ChallengeDelay:    10 * time.Second,
		},
		Login: LoginTiming{
			NavigationTimeout: 60 * time.Second,
			SettleDelay:       3 * time.Second,
			PollInterval:      3 * time.Second,
			Deadline:          5 * time.Minute,
			ProgressEvery:     15 * time.Second,
			SaveDelay:         2 * time.Second,
		},
		RefreshInterval: 10 * time.Minute,
		LogMaxBytes:     DefaultLogMaxBytes,
		LogKeepLines:    DefaultLogKeepLines,
		Headless:        true,
	}
}

// Load builds the configuration from the user's home directory and the
// CC_HOTSWAP_DIR / CC_HOTSWAP_ACCT_DIR overrides.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cfg := Default(home)
	if dir := os.Getenv(EnvCookieDir); dir != "" {
		cfg.CookieDir = dir
	}
	if dir := os.Getenv(EnvAccountDir); dir != "" {
		cfg.AccountDir = dir
	}
	return cfg, nil
}

// StateDir is the directory holding one <account>.json snapshot per account.
func (c *Config) StateDir() string {
	return filepath.Join(c.CookieDir, stateDirName)
}

// LogPath is the daemon's append-only log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.CookieDir, logFileName)
}

// StatusPath is the YAML file recording the last outcome per account.
func (c *Config) StatusPath() string {
	return filepath.Join(c.CookieDir, statusFileName)
}

// LockPath is the daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.CookieDir, lockFileName)
}

// EnsureDirs creates the snapshot and token directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.CookieDir, c.StateDir(), c.AccountDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
