// Package browser drives the headless (or headed) browser used to keep
// account sessions alive, through Playwright.
//
// # Architecture
//
// The package is built around three interfaces so the refresh logic can be
// exercised without a real browser:
//
//  1. Engine: starts browsers (PlaywrightEngine wraps playwright.Run)
//  2. Browser: one browser process, shared by many contexts
//  3. Context: one isolated browsing context plus its page, owned by a
//     single account
//
// # Context Lifecycle
//
//  1. Create: Browser.NewContext, optionally seeded from a storage-state
//     snapshot file
//  2. Use: Navigate, Wait, Title, Content, Cookie, StorageState
//  3. Close: Context.Close, then Browser.Close when every context is done
//
// Storage state is handed around as opaque bytes; this package is the only
// place that knows it is Playwright's JSON format.
//
// # Challenge Pages
//
// DetectChallenge inspects a page's title and HTML for the interstitial a
// site shows when it suspects automated access.
package browser
