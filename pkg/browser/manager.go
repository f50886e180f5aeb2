package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// SessionManager owns the Playwright runtime and the single active
// session. The capture system runs one session per task; the manager
// exists so acquisition and release are scoped and reusable across
// runs without restarting Playwright.
type SessionManager struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	session     *Session
	initialized bool
}

// NewSessionManager creates an uninitialized session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Initialize installs and starts the Playwright runtime. Must be called
// before starting a session. Safe to call more than once.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it cannot interleave with the CLI's JSON result.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// StartSession launches a persistent-context browser bound to the
// profile directory in opts and returns the live session. Only one
// session may be active at a time; the profile directory must not be
// shared with another running process.
func (m *SessionManager) StartSession(opts SessionOptions) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}
	if m.session != nil {
		return nil, fmt.Errorf("a session is already active")
	}
	if opts.UserDataDir == "" {
		return nil, fmt.Errorf("user data directory is required")
	}

	if opts.Viewport == nil {
		opts.Viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ExecutablePath)
	}

	context, err := m.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// Persistent contexts open with an initial page; reuse it if present.
	var page playwright.Page
	if pages := context.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = context.NewPage()
		if err != nil {
			context.Close()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}
	page.SetDefaultTimeout(opts.Timeout)

	session := &Session{
		Context:    context,
		Page:       page,
		ProfileDir: opts.UserDataDir,
		Headless:   opts.Headless,
		CreatedAt:  time.Now(),
	}
	m.session = session
	return session, nil
}

// CloseSession closes the active session. Close errors on individual
// resources are collected but cleanup always runs to completion.
func (m *SessionManager) CloseSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	var errs []error
	if err := m.session.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.session.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	m.session = nil

	if len(errs) > 0 {
		return fmt.Errorf("errors closing session: %v", errs)
	}
	return nil
}

// Shutdown closes any active session and stops Playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.session.Page.Close()
		m.session.Context.Close()
		m.session = nil
	}

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}
