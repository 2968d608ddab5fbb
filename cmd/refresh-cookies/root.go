package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entrhq/cc-hotswap/pkg/browser"
	"github.com/entrhq/cc-hotswap/pkg/config"
	"github.com/entrhq/cc-hotswap/pkg/logging"
	"github.com/entrhq/cc-hotswap/pkg/refresh"
	"github.com/entrhq/cc-hotswap/pkg/store"
	"github.com/entrhq/cc-hotswap/pkg/verify"
)

type options struct {
	initName   string
	only       string
	showStatus bool
	headed     bool
	noInstall  bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "refresh-cookies",
		Short: "Refresh saved sessions, or log in to save a new one",
		Long: `With no flags every saved session is refreshed in its own headless browser.
--init opens a visible browser and waits until you have logged in.`,
		Example: `  refresh-cookies                 Refresh all saved sessions
  refresh-cookies --init <name>   Manual login to save session
  refresh-cookies --only 'work-*' Refresh matching sessions only
  refresh-cookies --status        Show the last outcome per account`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Usage()
			}
			if cmd.Flags().Changed("init") {
				if err := store.ValidateAccount(opts.initName); err != nil {
					return err
				}
			}
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.initName, "init", "", "Log in interactively and save the session for `name`")
	cmd.Flags().StringVar(&opts.only, "only", "", "Refresh only accounts matching the glob `pattern`")
	cmd.Flags().BoolVar(&opts.showStatus, "status", false, "Show the last refresh outcome per account")
	cmd.Flags().BoolVar(&opts.headed, "headed", false, "Show the browser window during batch refresh")
	cmd.Flags().BoolVar(&opts.noInstall, "no-install", false, "Do not download the browser driver if it is missing")
	cmd.MarkFlagsMutuallyExclusive("init", "only", "status")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Headless = !opts.headed

	status := store.NewStatusFile(cfg.StatusPath())
	if opts.showStatus {
		return printStatus(out, status, time.Now())
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger, err := logging.New("", out)
	if err != nil {
		return err
	}
	defer logger.Close()

	st := store.New(cfg.StateDir(), cfg.AccountDir)
	refresher := refresh.New(cfg, st, verify.NewHTTPVerifier(cfg), logger, refresh.WithStatus(status))

	engine := browser.NewPlaywrightEngine(!opts.noInstall)
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Warnf("WARNING: stopping playwright: %v", err)
		}
	}()

	if opts.initName != "" {
		return refresher.InitAccount(ctx, engine, opts.initName)
	}

	// Individual failures are reported per account and do not change the
	// exit status.
	if _, err := refresher.RefreshAll(ctx, engine, opts.only); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	return nil
}
