package daemon

import (
	"sync"

	"github.com/entrhq/cc-hotswap/pkg/browser"
)

// Entry is one account's live context.
type Entry struct {
	Account string
	Context browser.Context
}

// Registry holds the daemon's live contexts in the order they were added.
// The refresh loop and the shutdown flush both read it through Snapshot.
type Registry struct {
	mu       sync.RWMutex
	contexts map[string]browser.Context
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contexts: make(map[string]browser.Context),
	}
}

// Add registers the account's context. It returns false, leaving the
// registry unchanged, if the account already has one.
func (r *Registry) Add(account string, bc browser.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[account]; exists {
		return false
	}
	r.contexts[account] = bc
	r.order = append(r.order, account)
	return true
}

// Has reports whether the account has a live context.
func (r *Registry) Has(account string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contexts[account]
	return ok
}

// Len returns the number of live contexts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Accounts returns the registered account names in insertion order.
func (r *Registry) Accounts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Snapshot returns a consistent copy of every entry.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.order))
	for _, account := range r.order {
		entries = append(entries, Entry{Account: account, Context: r.contexts[account]})
	}
	return entries
}
