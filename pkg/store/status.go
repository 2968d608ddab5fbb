package store

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// AccountStatus is the last known refresh outcome for one account.
type AccountStatus struct {
	LastAttempt time.Time `yaml:"last_attempt"`
	LastSuccess time.Time `yaml:"last_success,omitempty"`
	Result      string    `yaml:"result"`
	RunID       string    `yaml:"run_id,omitempty"`
}

// OK reports whether the last attempt succeeded.
func (s AccountStatus) OK() bool {
	return !s.LastSuccess.IsZero() && s.LastSuccess.Equal(s.LastAttempt)
}

type statusDocument struct {
	Version  string                   `yaml:"version"`
	Accounts map[string]AccountStatus `yaml:"accounts"`
}

// StatusFile records refresh outcomes in a small YAML document so an
// operator can see which accounts need re-initialisation. It never holds
// token material.
type StatusFile struct {
	mu   sync.Mutex
	path string
}

// NewStatusFile creates a status file handle for path.
func NewStatusFile(path string) *StatusFile {
	return &StatusFile{path: path}
}

// Path returns the file path of the status document.
func (f *StatusFile) Path() string {
	return f.path
}

// Load returns the recorded status per account. A missing file is empty.
func (f *StatusFile) Load() (map[string]AccountStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

// Record stores the outcome of one attempt. A successful attempt also
// moves LastSuccess forward; a failure keeps the previous LastSuccess.
func (f *StatusFile) Record(account string, at time.Time, ok bool, result, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}

	entry := doc.Accounts[account]
	entry.LastAttempt = at
	entry.Result = result
	entry.RunID = runID
	if ok {
		entry.LastSuccess = at
	}
	doc.Accounts[account] = entry

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := writeFileAtomic(f.path, data); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (f *StatusFile) read() (*statusDocument, error) {
	doc := &statusDocument{Version: "1", Accounts: make(map[string]AccountStatus)}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode status file: %w", err)
	}
	if doc.Accounts == nil {
		doc.Accounts = make(map[string]AccountStatus)
	}
	return doc, nil
}

// SortedAccounts returns the account names of a status map in order.
func SortedAccounts(statuses map[string]AccountStatus) []string {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
