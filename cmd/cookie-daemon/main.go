// Package main provides the cookie daemon: it keeps one headless browser
// alive and refreshes every saved account's session every ten minutes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/cc-hotswap/pkg/browser"
	"github.com/entrhq/cc-hotswap/pkg/config"
	"github.com/entrhq/cc-hotswap/pkg/daemon"
	"github.com/entrhq/cc-hotswap/pkg/logging"
	"github.com/entrhq/cc-hotswap/pkg/refresh"
	"github.com/entrhq/cc-hotswap/pkg/store"
	"github.com/entrhq/cc-hotswap/pkg/verify"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Headed      bool
	NoInstall   bool
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("cookie-daemon v%s\n", version)
		return
	}

	// Registered before the driver starts.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := run(context.Background(), cli, sigChan); err != nil {
		fmt.Fprintf(os.Stderr, "cookie-daemon: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.BoolVar(&cli.Headed, "headed", false, "Show the browser window (debugging)")
	flag.BoolVar(&cli.NoInstall, "no-install", false, "Do not download the browser driver if it is missing")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "cookie-daemon - keep saved sessions fresh\n\n")
		fmt.Fprintf(os.Stderr, "Usage: cookie-daemon [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %s   state and log directory\n", config.EnvCookieDir)
		fmt.Fprintf(os.Stderr, "  %s  session token directory\n", config.EnvAccountDir)
	}

	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}
	return cli
}

func run(ctx context.Context, cli *CLIConfig, signals <-chan os.Signal) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Headless = !cli.Headed

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogPath(), os.Stdout)
	if err != nil {
		// New already warned; console logging still works.
		logger.Debugf("file logging disabled: %v", err)
	}
	defer logger.Close()

	st := store.New(cfg.StateDir(), cfg.AccountDir)
	status := store.NewStatusFile(cfg.StatusPath())
	refresher := refresh.New(cfg, st, verify.NewHTTPVerifier(cfg), logger, refresh.WithStatus(status))

	// No accounts means no driver and no browser.
	accounts, err := st.Accounts("")
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		logger.Errorf("No saved sessions found. Run: refresh-cookies --init <name>")
		return daemon.ErrNoAccounts
	}

	engine := browser.NewPlaywrightEngine(!cli.NoInstall)
	if err := engine.Start(); err != nil {
		logger.Errorf("Fatal: %v", err)
		return err
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Warnf("WARNING: stopping playwright: %v", err)
		}
	}()

	d := daemon.New(cfg, st, refresher, engine, logger)
	if err := d.Run(ctx, signals); err != nil {
		if !errors.Is(err, daemon.ErrNoAccounts) {
			logger.Errorf("Fatal: %v", err)
		}
		return err
	}
	return nil
}
