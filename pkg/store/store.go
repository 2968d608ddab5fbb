// Package store persists the two artifacts kept per account: the opaque
// browser-state snapshot and the bare session token file.
//
// Every write goes to a temporary file in the destination directory and is
// renamed into place, so an existing artifact is never truncated or zeroed
// by a failed write. The token and snapshot are written separately; a crash
// between the two writes can leave one fresh and the other stale.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

const (
	snapshotExt  = ".json"
	tokenPrefix  = "session-"
	tokenExt     = ".key"
	artifactMode = 0600
)

// ErrNoSnapshot is returned when an account has no browser-state snapshot.
var ErrNoSnapshot = errors.New("no saved browser state")

// Store reads and writes account artifacts below two directories.
type Store struct {
	stateDir string
	tokenDir string
}

// New creates a store rooted at stateDir (snapshots) and tokenDir (tokens).
func New(stateDir, tokenDir string) *Store {
	return &Store{
		stateDir: stateDir,
		tokenDir: tokenDir,
	}
}

// StateDir returns the snapshot directory.
func (s *Store) StateDir() string {
	return s.stateDir
}

// SnapshotPath returns <state-dir>/<account>.json.
func (s *Store) SnapshotPath(account string) string {
	return filepath.Join(s.stateDir, account+snapshotExt)
}

// TokenPath returns <token-dir>/session-<account>.key.
func (s *Store) TokenPath(account string) string {
	return filepath.Join(s.tokenDir, tokenPrefix+account+tokenExt)
}

// HasSnapshot reports whether a snapshot exists for the account.
func (s *Store) HasSnapshot(account string) bool {
	info, err := os.Stat(s.SnapshotPath(account))
	return err == nil && info.Mode().IsRegular()
}

// LoadSnapshot returns the raw snapshot bytes.
func (s *Store) LoadSnapshot(account string) ([]byte, error) {
	data, err := os.ReadFile(s.SnapshotPath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", account, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", account, err)
	}
	return data, nil
}

// SaveSnapshot atomically replaces the account's snapshot.
func (s *Store) SaveSnapshot(account string, data []byte) error {
	if err := writeFileAtomic(s.SnapshotPath(account), data); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", account, err)
	}
	return nil
}

// LoadToken returns the stored token value.
func (s *Store) LoadToken(account string) (string, error) {
	data, err := os.ReadFile(s.TokenPath(account))
	if err != nil {
		return "", fmt.Errorf("failed to read token for %s: %w", account, err)
	}
	return string(data), nil
}

// SaveToken atomically replaces the account's token file with the bare
// value, no trailing newline.
func (s *Store) SaveToken(account, token string) error {
	if token == "" {
		return fmt.Errorf("refusing to write empty token for %s", account)
	}
	if err := writeFileAtomic(s.TokenPath(account), []byte(token)); err != nil {
		return fmt.Errorf("failed to save token for %s: %w", account, err)
	}
	return nil
}

// Accounts lists the accounts that have a snapshot, sorted by name. A
// non-empty pattern is a glob over account names ("al*", "{alice,bob}").
func (s *Store) Accounts(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid account pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(s.stateDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var accounts []string
	for _, entry := range entries {
		name, ok := AccountFromSnapshot(entry.Name())
		if !ok || !entry.Type().IsRegular() {
			continue
		}
		if matcher.Match(name) {
			accounts = append(accounts, name)
		}
	}
	sort.Strings(accounts)
	return accounts, nil
}

// AccountFromSnapshot maps a snapshot file name to its account name.
func AccountFromSnapshot(file string) (string, bool) {
	base := filepath.Base(file)
	if !strings.HasSuffix(base, snapshotExt) || strings.HasPrefix(base, ".") {
		return "", false
	}
	name := strings.TrimSuffix(base, snapshotExt)
	return name, name != ""
}

// ValidateAccount rejects names that cannot be used as a path component.
func ValidateAccount(name string) error {
	if name == "" {
		return errors.New("account name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid account name %q", name)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place with owner-only permissions.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()

	if err := tmp.Chmod(artifactMode); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
