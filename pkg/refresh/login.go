package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/cc-hotswap/pkg/browser"
)

// Login waits for a human to sign in on a visible context and persists
// the session once the API accepts it. An already valid context is saved
// straight away. On deadline nothing is written and ErrLoginTimeout is
// returned.
func (r *Refresher) Login(ctx context.Context, account string, bc browser.Context) error {
	t := r.cfg.Login
	if t.PollInterval <= 0 {
		return errors.New("login poll interval must be positive")
	}

	if err := r.navigate(bc, r.cfg.BaseURL, t.NavigationTimeout); err != nil {
		return err
	}
	bc.Wait(t.SettleDelay)

	if token, ok := r.currentSession(ctx, bc); ok {
		r.logger.Printf("Session is valid! Saving state...")
		return r.saveLogin(account, token, bc)
	}

	r.logger.Printf("Waiting for login... (will auto-save when valid session detected)")

	var elapsed time.Duration
	for elapsed < t.Deadline {
		bc.Wait(t.PollInterval)
		elapsed += t.PollInterval

		if token, ok := r.currentSession(ctx, bc); ok {
			r.logger.Printf("Login detected and verified!")
			bc.Wait(t.SaveDelay)
			return r.saveLogin(account, token, bc)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if t.ProgressEvery > 0 && elapsed%t.ProgressEvery == 0 {
			r.logger.Printf("  Still waiting... (%ds)", int(elapsed.Seconds()))
		}
	}

	r.logger.Printf("Timed out waiting for login (%s). No state saved.", t.Deadline)
	return fmt.Errorf("%s: %w", account, ErrLoginTimeout)
}

// currentSession extracts and verifies the context's token.
func (r *Refresher) currentSession(ctx context.Context, bc browser.Context) (string, bool) {
	token, err := r.extractToken(bc)
	if err != nil {
		return "", false
	}
	if err := r.verify(ctx, token); err != nil {
		return "", false
	}
	return token, true
}

// saveLogin persists the verified token and the context's state.
func (r *Refresher) saveLogin(account, token string, bc browser.Context) error {
	if err := r.persist(account, token, bc); err != nil {
		r.logger.Errorf("WARNING: %s: %v", account, err)
		r.record(account, false, ReasonPersistenceWrite)
		return err
	}

	r.logger.Printf("Session cookie saved: %s", r.store.TokenPath(account))
	r.record(account, true, ReasonOK)
	return nil
}
