// Package daemon keeps one browser alive and refreshes every account's
// session on a fixed cadence until it is told to stop.
//
// One shared browser process hosts a context per account. Accounts are
// refreshed strictly one after another. On a termination signal every live
// context's last-known state is flushed to disk, without a fresh
// verification, before the browser is closed.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/entrhq/cc-hotswap/pkg/browser"
	"github.com/entrhq/cc-hotswap/pkg/config"
	"github.com/entrhq/cc-hotswap/pkg/logging"
	"github.com/entrhq/cc-hotswap/pkg/refresh"
	"github.com/entrhq/cc-hotswap/pkg/store"
)

// DefaultStopTimeout bounds how long Run waits for an in-flight refresh to
// notice shutdown.
const DefaultStopTimeout = 30 * time.Second

var (
	// ErrNoAccounts means the state directory held no snapshots at startup.
	ErrNoAccounts = errors.New("no saved sessions found")

	// ErrAlreadyRunning means another daemon holds the lock on the same
	// directory.
	ErrAlreadyRunning = errors.New("daemon already running (lock held by another process)")
)

// Daemon is the long-running refresh scheduler.
type Daemon struct {
	cfg       *config.Config
	store     *store.Store
	refresher *refresh.Refresher
	engine    browser.Engine
	logger    *logging.Logger

	registry    *Registry
	browser     browser.Browser
	flushOnce   sync.Once
	stopTimeout time.Duration
	watch       bool
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) Option {
	return func(dm *Daemon) {
		dm.stopTimeout = d
	}
}

// WithoutWatcher disables account hot-add.
func WithoutWatcher() Option {
	return func(dm *Daemon) {
		dm.watch = false
	}
}

// New creates a daemon. Nothing is started until Run.
func New(cfg *config.Config, st *store.Store, refresher *refresh.Refresher, engine browser.Engine, logger *logging.Logger, opts ...Option) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	d := &Daemon{
		cfg:         cfg,
		store:       st,
		refresher:   refresher,
		engine:      engine,
		logger:      logger,
		registry:    NewRegistry(),
		stopTimeout: DefaultStopTimeout,
		watch:       true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Accounts returns the accounts that currently have a live context.
func (d *Daemon) Accounts() []string {
	return d.registry.Accounts()
}

// Run starts the daemon and blocks until a signal arrives on signals or ctx
// is canceled. A clean stop returns nil. Startup failures are returned
// before any refresh runs; with no accounts no browser is launched.
func (d *Daemon) Run(ctx context.Context, signals <-chan os.Signal) error {
	lock := flock.New(d.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer func() { _ = lock.Unlock() }()

	d.logger.Printf("Cookie daemon starting... (run %s)", d.logger.RunID())

	accounts, err := d.store.Accounts("")
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		d.logger.Errorf("No saved sessions found. Run: refresh-cookies --init <name>")
		return ErrNoAccounts
	}
	d.logger.Printf("Accounts: %s", strings.Join(accounts, ", "))

	b, err := d.engine.Launch(browser.LaunchOptions{Headless: d.cfg.Headless})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	d.browser = b
	if d.cfg.Headless {
		d.logger.Printf("Browser launched (headless)")
	} else {
		d.logger.Printf("Browser launched (headed)")
	}

	for _, account := range accounts {
		if err := d.addContext(account); err != nil {
			_ = b.Close()
			return err
		}
	}
	d.logger.Printf("%d context(s) initialized", d.registry.Len())

	var watcher *Watcher
	if d.watch {
		watcher, err = NewWatcher(d.store.StateDir(), d.logger)
		if err != nil {
			d.logger.Warnf("WARNING: new accounts will not be picked up: %v", err)
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.loop(loopCtx, watcher)
	}()

	select {
	case sig := <-signals:
		d.logger.Printf("Received %s, saving state...", signalName(sig))
	case <-ctx.Done():
		d.logger.Printf("Shutting down (%v), saving state...", ctx.Err())
	}

	d.Flush()
	cancel()
	if watcher != nil {
		watcher.Stop()
	}
	if err := b.Close(); err != nil {
		d.logger.Warnf("WARNING: closing browser: %v", err)
	}

	select {
	case <-done:
	case <-time.After(d.stopTimeout):
		d.logger.Warnf("WARNING: refresh still running after %s, exiting anyway", d.stopTimeout)
	}

	d.logger.Printf("Daemon stopped")
	return nil
}

// Flush saves the snapshot and token of every live context from its current
// state, skipping verification and ignoring individual failures. Only the
// first call does anything.
func (d *Daemon) Flush() {
	d.flushOnce.Do(func() {
		for _, e := range d.registry.Snapshot() {
			if state, err := e.Context.StorageState(); err == nil {
				if err := d.store.SaveSnapshot(e.Account, state); err != nil {
					d.logger.Debugf("  %s: flush snapshot: %v", e.Account, err)
				}
			}
			if token, err := e.Context.Cookie(d.cfg.BaseURL, d.cfg.CookieName); err == nil && token != "" {
				if err := d.store.SaveToken(e.Account, token); err != nil {
					d.logger.Debugf("  %s: flush token: %v", e.Account, err)
				}
			}
		}
	})
}

// loop runs the initial pass, then one pass per interval, adding contexts
// for new accounts between passes.
func (d *Daemon) loop(ctx context.Context, watcher *Watcher) {
	d.logger.Printf("Running initial refresh...")
	d.pass(ctx)
	if ctx.Err() != nil {
		return
	}

	d.logger.Printf("Entering refresh loop (every %s)", describeInterval(d.cfg.RefreshInterval))

	var added <-chan string
	if watcher != nil {
		added = watcher.Added()
	}

	timer := time.NewTimer(d.cfg.RefreshInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case account := <-added:
			d.hotAdd(account)

		case <-timer.C:
			if _, err := d.logger.TruncateIfLarger(d.cfg.LogMaxBytes, d.cfg.LogKeepLines); err != nil {
				d.logger.Warnf("WARNING: log truncation failed: %v", err)
			}
			d.logger.Printf("Refreshing...")
			d.pass(ctx)
			timer.Reset(d.cfg.RefreshInterval)
		}
	}
}

func (d *Daemon) pass(ctx context.Context) {
	for _, e := range d.registry.Snapshot() {
		if ctx.Err() != nil {
			return
		}
		d.refresher.Refresh(ctx, e.Account, e.Context, d.cfg.Daemon)
	}
}

func (d *Daemon) hotAdd(account string) {
	if d.registry.Has(account) {
		return
	}
	if err := d.addContext(account); err != nil {
		d.logger.Warnf("  %s: %v", account, err)
		return
	}
	d.logger.Printf("  %s: context added", account)
}

func (d *Daemon) addContext(account string) error {
	bc, err := d.browser.NewContext(browser.ContextOptions{
		UserAgent:        d.cfg.ContextUserAgent,
		StorageStatePath: d.store.SnapshotPath(account),
	})
	if err != nil {
		return fmt.Errorf("failed to create context for %s: %w", account, err)
	}
	d.registry.Add(account, bc)
	return nil
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	case nil:
		return "signal"
	default:
		return sig.String()
	}
}

func describeInterval(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	return d.String()
}
