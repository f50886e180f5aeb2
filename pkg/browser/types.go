// Package browser wraps Playwright with the session lifecycle and page
// operations the capture system needs: persistent-profile sessions,
// navigation with settle, form interaction, script evaluation, and
// screenshot capture.
package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Driver is the page capability consumed by the executor and the agent
// runner. *Session is the production implementation; tests substitute
// fakes.
type Driver interface {
	// Navigate loads a URL and waits for the configured settle state.
	Navigate(url string, opts NavigateOptions) error

	// Fill sets the value of the input matching the selector.
	Fill(selector, value string) error

	// Click clicks the element matching the selector.
	Click(selector string) error

	// Evaluate runs a JavaScript expression in the page and returns its
	// structured result.
	Evaluate(script string) (interface{}, error)

	// Screenshot captures the current page as PNG bytes.
	Screenshot() ([]byte, error)

	// Snapshot returns a cleaned, size-bounded rendering of the page
	// suitable for handing to a language model.
	Snapshot(maxLength int) (*PageSnapshot, error)

	// Reload forces a full page reload.
	Reload() error

	// URL returns the current page URL.
	URL() string
}

// Session is an active browser session bound to a persistent profile
// directory. It owns the Playwright context and page for one task run.
type Session struct {
	// Context is the browser context. For persistent-profile sessions
	// this is the only Playwright handle; there is no separate Browser.
	Context playwright.BrowserContext

	// Page is the active page.
	Page playwright.Page

	// ProfileDir is the on-disk profile directory backing this session.
	ProfileDir string

	// Headless indicates whether the browser runs without a window.
	Headless bool

	// CreatedAt is when the session was started.
	CreatedAt time.Time
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// UserDataDir is the persistent profile directory. Authentication
	// cookies accumulate here across runs. Required.
	UserDataDir string

	// ExecutablePath optionally points at a specific browser binary
	// instead of the bundled one.
	ExecutablePath string

	// Headless controls whether the browser runs without a window.
	Headless bool

	// Viewport sets the initial viewport size.
	Viewport *Viewport

	// Timeout is the default per-operation timeout in milliseconds.
	Timeout float64
}

// Viewport represents browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when navigation is considered complete:
	// "load", "domcontentloaded", or "networkidle".
	WaitUntil string

	// Timeout in milliseconds (0 means session default).
	Timeout float64
}

// PageSnapshot is a cleaned rendering of the current page handed to the
// agent as observation input.
type PageSnapshot struct {
	URL       string
	Title     string
	HTML      string
	Truncated bool
}

// Defaults for session and page operations.
const (
	DefaultTimeout        = 30000.0 // milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultSnapshotLength = 10000 // characters of cleaned HTML
)
