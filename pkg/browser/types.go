package browser

import (
	"errors"
	"time"
)

// ErrNavigationTimeout is returned when a page does not reach the requested
// readiness state within the navigation timeout.
var ErrNavigationTimeout = errors.New("navigation timed out")

// ErrCookieNotFound is returned when the context's cookie jar has no cookie
// with the requested name.
var ErrCookieNotFound = errors.New("cookie not found")

// Engine launches browser processes.
type Engine interface {
	// Launch starts a new browser process.
	Launch(opts LaunchOptions) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	// NewContext creates an isolated context with one open page.
	NewContext(opts ContextOptions) (Context, error)

	// Close terminates the browser and every context it owns.
	Close() error
}

// Context is one isolated browsing context and its page.
type Context interface {
	// Navigate loads url and waits for the DOM to be parsed. A timeout is
	// reported as ErrNavigationTimeout.
	Navigate(url string, timeout time.Duration) error

	// Wait pauses for a fixed duration.
	Wait(d time.Duration)

	// Title returns the current page title.
	Title() (string, error)

	// Content returns the current page HTML.
	Content() (string, error)

	// Cookie returns the value of the named cookie visible to url, or
	// ErrCookieNotFound.
	Cookie(url, name string) (string, error)

	// StorageState serialises cookies and local storage as opaque bytes.
	StorageState() ([]byte, error)

	// Close closes the page and the context.
	Close() error
}

// LaunchOptions configures a new browser process.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Args are extra command-line switches for the browser
	Args []string
}

// ContextOptions configures a new browsing context.
type ContextOptions struct {
	// UserAgent overrides the browser's default user agent
	UserAgent string

	// StorageStatePath seeds the context from a snapshot file when set
	StorageStatePath string

	// Viewport sets the initial viewport size
	Viewport *Viewport
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for launched browsers
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// DefaultArgs hides the automation-controlled blink feature that challenge
// pages probe for.
var DefaultArgs = []string{"--disable-blink-features=AutomationControlled"}
