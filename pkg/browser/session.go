package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Navigate navigates the session's page to the specified URL and waits
// for the configured settle state.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, playwrightOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Fill sets the value of the input element matching the selector.
func (s *Session) Fill(selector, value string) error {
	if err := s.Page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Click clicks the element matching the selector.
func (s *Session) Click(selector string) error {
	if err := s.Page.Click(selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Evaluate runs a JavaScript expression in the page and returns its result.
func (s *Session) Evaluate(script string) (interface{}, error) {
	result, err := s.Page.Evaluate(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	data, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return data, nil
}

// Snapshot returns a cleaned rendering of the current page.
func (s *Session) Snapshot(maxLength int) (*PageSnapshot, error) {
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}

	raw, err := s.Page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	snapshot, err := cleanPage(raw, maxLength)
	if err != nil {
		return nil, err
	}
	snapshot.URL = s.Page.URL()
	return snapshot, nil
}

// Reload forces a full page reload and waits for the load event.
func (s *Session) Reload() error {
	if _, err := s.Page.Reload(playwright.PageReloadOptions{WaitUntil: playwright.WaitUntilStateLoad}); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}
