// Package refresh implements the session refresh state machine shared by
// the daemon and the one-shot tool, the interactive login flow, and the
// batch refresh of every known account.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/cc-hotswap/pkg/browser"
	"github.com/entrhq/cc-hotswap/pkg/config"
	"github.com/entrhq/cc-hotswap/pkg/logging"
	"github.com/entrhq/cc-hotswap/pkg/store"
)

// Verifier confirms a token against the remote API.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// State is a step of the refresh state machine.
type State int

// States in the order a successful refresh visits them.
const (
	StateNavigating State = iota
	StateChallengeCheck
	StateTokenExtraction
	StateVerification
	StatePersisting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNavigating:
		return "Navigating"
	case StateChallengeCheck:
		return "ChallengeCheck"
	case StateTokenExtraction:
		return "TokenExtraction"
	case StateVerification:
		return "Verification"
	case StatePersisting:
		return "Persisting"
	case StateSuccess:
		return "Success"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the outcome of one refresh.
type Result struct {
	Account string

	// State is StateSuccess or StateFailed.
	State State

	// FailedIn is the state that failed. Only meaningful when State is
	// StateFailed.
	FailedIn State

	// Token is the extracted cookie value, set once extraction succeeded.
	// After verification it is the authoritative latest value even if
	// persisting failed.
	Token string

	// Challenge reports whether a challenge page was detected and waited out.
	Challenge bool

	Err error
}

// OK reports whether the refresh reached StateSuccess.
func (r Result) OK() bool {
	return r.State == StateSuccess
}

// Reason classifies the result.
func (r Result) Reason() Reason {
	return Classify(r.Err)
}

// Refresher drives one account's context through the refresh states.
type Refresher struct {
	cfg      *config.Config
	store    *store.Store
	verifier Verifier
	logger   *logging.Logger
	status   *store.StatusFile
	now      func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithStatus records every outcome in the status file.
func WithStatus(status *store.StatusFile) Option {
	return func(r *Refresher) {
		r.status = status
	}
}

// WithClock overrides the clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) {
		r.now = now
	}
}

// New creates a Refresher.
func New(cfg *config.Config, st *store.Store, verifier Verifier, logger *logging.Logger, opts ...Option) *Refresher {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &Refresher{
		cfg:      cfg,
		store:    st,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh brings the account's session to a verified, persisted state or
// reports why it could not. No artifact is written on any failure path.
// Exactly one outcome line is logged.
func (r *Refresher) Refresh(ctx context.Context, account string, bc browser.Context, timing config.Timing) Result {
	res := Result{Account: account}

	state := StateNavigating
	for state != StateSuccess && state != StateFailed {
		var err error
		next := state

		switch state {
		case StateNavigating:
			err = r.navigate(bc, r.cfg.SettingsURL, timing.NavigationTimeout)
			next = StateChallengeCheck
		case StateChallengeCheck:
			res.Challenge = r.waitOutChallenge(account, bc, timing)
			next = StateTokenExtraction
		case StateTokenExtraction:
			res.Token, err = r.extractToken(bc)
			next = StateVerification
		case StateVerification:
			err = r.verify(ctx, res.Token)
			next = StatePersisting
		case StatePersisting:
			err = r.persist(account, res.Token, bc)
			next = StateSuccess
		}

		if err != nil {
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", ErrInterrupted, err)
			}
			res.FailedIn = state
			res.Err = err
			next = StateFailed
		}
		state = next
	}
	res.State = state

	r.report(res)
	return res
}

func (r *Refresher) navigate(bc browser.Context, url string, timeout time.Duration) error {
	err := bc.Navigate(url, timeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, browser.ErrNavigationTimeout):
		return fmt.Errorf("%w: %w", ErrNavigationTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrNavigationFailed, err)
	}
}

// waitOutChallenge waits the settle delay, then waits once more if the page
// is a challenge interstitial. There is no re-check after the second wait.
func (r *Refresher) waitOutChallenge(account string, bc browser.Context, timing config.Timing) bool {
	bc.Wait(timing.SettleDelay)

	// A page that cannot be inspected is treated as no challenge.
	title, err := bc.Title()
	if err != nil {
		title = ""
	}
	content, err := bc.Content()
	if err != nil {
		content = ""
	}

	if !browser.DetectChallenge(title, content) {
		return false
	}

	r.logger.Printf("  %s: Challenge page, waiting %s...", account, timing.ChallengeDelay)
	bc.Wait(timing.ChallengeDelay)
	return true
}

func (r *Refresher) extractToken(bc browser.Context) (string, error) {
	token, err := bc.Cookie(r.cfg.BaseURL, r.cfg.CookieName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSessionCookie, err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty %s", ErrNoSessionCookie, r.cfg.CookieName)
	}
	return token, nil
}

// verify is bounded by the verifier's own timeout, not by ctx.
func (r *Refresher) verify(ctx context.Context, token string) error {
	if err := r.verifier.Verify(context.WithoutCancel(ctx), token); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return nil
}

// persist reads the context's state, then writes the token and the
// snapshot. Nothing is written if the state cannot be read. Both writes are
// attempted; either failing fails the refresh.
func (r *Refresher) persist(account, token string, bc browser.Context) error {
	state, err := bc.StorageState()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}

	tokenErr := r.store.SaveToken(account, token)
	snapshotErr := r.store.SaveSnapshot(account, state)
	if err := errors.Join(tokenErr, snapshotErr); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistenceWrite, err)
	}
	return nil
}

func (r *Refresher) report(res Result) {
	if res.OK() {
		r.logger.Printf("  %s: OK", res.Account)
	} else {
		r.logger.Printf("  %s: %s", res.Account, Describe(res.Err, r.cfg.CookieName))
	}
	if res.Reason() == ReasonInterrupted {
		return
	}
	r.record(res.Account, res.OK(), res.Reason())
}

func (r *Refresher) record(account string, ok bool, reason Reason) {
	if r.status == nil {
		return
	}
	if err := r.status.Record(account, r.now(), ok, string(reason), r.logger.RunID()); err != nil {
		r.logger.Warnf("  %s: failed to update status: %v", account, err)
	}
}
