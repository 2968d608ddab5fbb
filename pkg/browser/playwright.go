package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine launches Chromium through a Playwright driver process.
type PlaywrightEngine struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	initialized bool
	install     bool
}

// NewPlaywrightEngine creates an engine. When install is true, Start first
// downloads the driver and Chromium if they are missing.
func NewPlaywrightEngine(install bool) *PlaywrightEngine {
	return &PlaywrightEngine{install: install}
}

// Start installs (optionally) and runs the Playwright driver. Launch starts
// it on first use, so calling Start is only needed to surface driver errors
// early.
func (e *PlaywrightEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.start()
}

func (e *PlaywrightEngine) start() error {
	if e.initialized {
		return nil
	}

	// Driver output stays off the console.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if e.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	e.playwright = pw
	e.initialized = true
	return nil
}

// Launch starts a Chromium process.
func (e *PlaywrightEngine) Launch(opts LaunchOptions) (Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.start(); err != nil {
		return nil, err
	}

	args := opts.Args
	if args == nil {
		args = DefaultArgs
	}

	b, err := e.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: b}, nil
}

// Stop shuts down the Playwright driver.
func (e *PlaywrightEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || e.playwright == nil {
		return nil
	}
	if err := e.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	e.initialized = false
	return nil
}

type playwrightBrowser struct {
	browser playwright.Browser
}

func (b *playwrightBrowser) NewContext(opts ContextOptions) (Context, error) {
	if opts.Viewport == nil {
		opts.Viewport = &Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		}
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	if opts.StorageStatePath != "" {
		contextOpts.StorageStatePath = playwright.String(opts.StorageStatePath)
	}

	context, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &playwrightContext{context: context, page: page}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (c *playwrightContext) Navigate(url string, timeout time.Duration) error {
	_, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("%s: %w", url, ErrNavigationTimeout)
		}
		return fmt.Errorf("%s: %w", url, err)
	}
	return nil
}

func (c *playwrightContext) Wait(d time.Duration) {
	if d <= 0 {
		return
	}
	c.page.WaitForTimeout(float64(d.Milliseconds()))
}

func (c *playwrightContext) Title() (string, error) {
	return c.page.Title()
}

func (c *playwrightContext) Content() (string, error) {
	return c.page.Content()
}

func (c *playwrightContext) Cookie(url, name string) (string, error) {
	cookies, err := c.context.Cookies(url)
	if err != nil {
		return "", fmt.Errorf("failed to read cookies: %w", err)
	}
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrCookieNotFound)
}

func (c *playwrightContext) StorageState() ([]byte, error) {
	state, err := c.context.StorageState()
	if err != nil {
		return nil, fmt.Errorf("failed to read storage state: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode storage state: %w", err)
	}
	return data, nil
}

func (c *playwrightContext) Close() error {
	_ = c.page.Close() // Ignore errors, continue cleanup
	return c.context.Close()
}
