package refresh

import (
	"context"
	"fmt"

	"github.com/entrhq/cc-hotswap/pkg/browser"
	"github.com/entrhq/cc-hotswap/pkg/store"
)

// Summary aggregates a batch refresh.
type Summary struct {
	Refreshed int
	Failed    int
	Results   []Result
}

// RefreshAll refreshes every account whose name matches pattern ("" for
// all), each in its own freshly launched browser. Individual failures are
// counted, never fatal. An error is returned only if discovery fails.
func (r *Refresher) RefreshAll(ctx context.Context, engine browser.Engine, pattern string) (Summary, error) {
	var summary Summary

	accounts, err := r.store.Accounts(pattern)
	if err != nil {
		return summary, err
	}
	if len(accounts) == 0 {
		r.logger.Printf("No saved sessions. Run: refresh-cookies --init <name>")
		return summary, nil
	}

	r.logger.Printf("Refreshing %d account(s)...", len(accounts))

	for _, account := range accounts {
		if ctx.Err() != nil {
			break
		}
		res := r.RefreshAccount(ctx, engine, account)
		summary.Results = append(summary.Results, res)
		if res.OK() {
			summary.Refreshed++
		} else {
			summary.Failed++
		}
	}

	r.logger.Printf("Done: %d refreshed, %d failed", summary.Refreshed, summary.Failed)
	return summary, nil
}

// RefreshAccount refreshes one account in a browser launched just for it.
func (r *Refresher) RefreshAccount(ctx context.Context, engine browser.Engine, account string) Result {
	if !r.store.HasSnapshot(account) {
		res := Result{
			Account:  account,
			State:    StateFailed,
			FailedIn: StateNavigating,
			Err:      fmt.Errorf("%s: %w", account, ErrNoSnapshot),
		}
		r.report(res)
		return res
	}

	r.logger.Printf("Refreshing: %s", account)

	b, err := engine.Launch(browser.LaunchOptions{Headless: r.cfg.Headless})
	if err != nil {
		return r.failStartup(account, err)
	}
	defer b.Close()

	bc, err := b.NewContext(browser.ContextOptions{
		UserAgent:        r.cfg.ContextUserAgent,
		StorageStatePath: r.store.SnapshotPath(account),
	})
	if err != nil {
		return r.failStartup(account, err)
	}

	res := r.Refresh(ctx, account, bc, r.cfg.OneShot)
	if res.Reason() == ReasonSessionExpired {
		r.logger.Printf("  Run: refresh-cookies --init %s", account)
	}
	return res
}

// InitAccount opens a visible browser, seeded with the account's previous
// snapshot if there is one, and runs Login.
func (r *Refresher) InitAccount(ctx context.Context, engine browser.Engine, account string) error {
	if err := store.ValidateAccount(account); err != nil {
		return err
	}

	r.logger.Printf("Opening browser for login: %s", account)

	b, err := engine.Launch(browser.LaunchOptions{Headless: false})
	if err != nil {
		return err
	}
	defer b.Close()

	opts := browser.ContextOptions{UserAgent: r.cfg.ContextUserAgent}
	if r.store.HasSnapshot(account) {
		opts.StorageStatePath = r.store.SnapshotPath(account)
	}

	bc, err := b.NewContext(opts)
	if err != nil {
		return err
	}

	if err := r.Login(ctx, account, bc); err != nil {
		return err
	}

	r.logger.Printf("Done. State saved for %s", account)
	return nil
}

func (r *Refresher) failStartup(account string, err error) Result {
	res := Result{
		Account:  account,
		State:    StateFailed,
		FailedIn: StateNavigating,
		Err:      err,
	}
	r.report(res)
	return res
}
