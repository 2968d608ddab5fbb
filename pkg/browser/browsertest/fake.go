// Package browsertest provides an in-memory browser.Engine for tests.
// Contexts are scripted: each one serves a fixed title, HTML, cookie jar
// and storage state, and records the navigations and waits it receives.
// Wait never sleeps.
package browsertest

import (
	"errors"
	"sync"
	"time"

	"github.com/entrhq/cc-hotswap/pkg/browser"
)

// ErrClosed is returned by a context used after it, or its browser, was
// closed.
var ErrClosed = errors.New("target page, context or browser has been closed")

// Script describes how one fake context behaves.
type Script struct {
	// NavigateErr is returned from every Navigate call.
	NavigateErr error

	// OnNavigate runs inside Navigate before it returns.
	OnNavigate func()

	Title string
	HTML  string

	// Cookies maps cookie name to value.
	Cookies map[string]string

	// CookieAfterWaits hides the cookies until the context has received
	// this many Wait calls, simulating a human finishing a login.
	CookieAfterWaits int

	// State is returned by StorageState. Nil means a default document.
	State    []byte
	StateErr error
}

// Engine is a fake browser.Engine.
type Engine struct {
	mu sync.Mutex

	// ScriptFor picks the script for a new context. Nil gives every
	// context an empty script.
	ScriptFor func(opts browser.ContextOptions) *Script

	// LaunchErr fails every Launch.
	LaunchErr error

	launches []browser.LaunchOptions
	browsers []*Browser
}

// Launch records the options and returns a new fake browser.
func (e *Engine) Launch(opts browser.LaunchOptions) (browser.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.launches = append(e.launches, opts)
	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	b := &Browser{engine: e}
	e.browsers = append(e.browsers, b)
	return b, nil
}

// Launches returns the options of every Launch call.
func (e *Engine) Launches() []browser.LaunchOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]browser.LaunchOptions(nil), e.launches...)
}

// Browsers returns every browser launched so far.
func (e *Engine) Browsers() []*Browser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Browser(nil), e.browsers...)
}

func (e *Engine) scriptFor(opts browser.ContextOptions) *Script {
	e.mu.Lock()
	pick := e.ScriptFor
	e.mu.Unlock()

	if pick == nil {
		return &Script{}
	}
	if s := pick(opts); s != nil {
		return s
	}
	return &Script{}
}

// Browser is a fake browser.Browser.
type Browser struct {
	engine *Engine

	mu       sync.Mutex
	contexts []*Context
	closed   bool
}

// NewContext creates a scripted context.
func (b *Browser) NewContext(opts browser.ContextOptions) (browser.Context, error) {
	script := b.engine.scriptFor(opts)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("browser has been closed")
	}
	c := &Context{opts: opts, script: script}
	b.contexts = append(b.contexts, c)
	return c, nil
}

// Close marks the browser and all its contexts closed.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, c := range b.contexts {
		c.markClosed()
	}
	return nil
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Contexts returns the contexts created by this browser.
func (b *Browser) Contexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

// Context is a fake browser.Context.
type Context struct {
	opts   browser.ContextOptions
	script *Script

	mu          sync.Mutex
	navigations []string
	waits       []time.Duration
	closed      bool
}

// NewContext returns a standalone scripted context, for tests that do not
// need an engine.
func NewContext(script *Script) *Context {
	if script == nil {
		script = &Script{}
	}
	return &Context{script: script}
}

// Navigate records the URL and returns the scripted error.
func (c *Context) Navigate(url string, timeout time.Duration) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.navigations = append(c.navigations, url)
	hook := c.script.OnNavigate
	err := c.script.NavigateErr
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

// Wait records the duration without sleeping.
func (c *Context) Wait(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
}

// Title returns the scripted title.
func (c *Context) Title() (string, error) {
	return c.script.Title, nil
}

// Content returns the scripted HTML.
func (c *Context) Content() (string, error) {
	return c.script.HTML, nil
}

// Cookie returns a scripted cookie, honouring CookieAfterWaits.
func (c *Context) Cookie(url, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClosed
	}
	if len(c.waits) < c.script.CookieAfterWaits {
		return "", browser.ErrCookieNotFound
	}
	value, ok := c.script.Cookies[name]
	if !ok {
		return "", browser.ErrCookieNotFound
	}
	return value, nil
}

// StorageState returns the scripted state bytes.
func (c *Context) StorageState() ([]byte, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if c.script.StateErr != nil {
		return nil, c.script.StateErr
	}
	if c.script.State != nil {
		return c.script.State, nil
	}
	return []byte(`{"cookies":[],"origins":[]}`), nil
}

// Close marks the context closed.
func (c *Context) Close() error {
	c.markClosed()
	return nil
}

func (c *Context) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Options returns the options the context was created with.
func (c *Context) Options() browser.ContextOptions {
	return c.opts
}

// Navigations returns the URLs passed to Navigate.
func (c *Context) Navigations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.navigations...)
}

// Waits returns the durations passed to Wait.
func (c *Context) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// Closed reports whether the context was closed.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
