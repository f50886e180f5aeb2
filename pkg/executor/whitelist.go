package executor

import (
	"fmt"

	"github.com/gobwas/glob"
)

// URLWhitelist restricts agent navigation to URLs matching at least one
// allow pattern. Patterns use glob syntax matched against the full URL.
// An empty whitelist allows everything: the restriction is a guardrail
// against the agent wandering off the target application, not a
// security boundary.
type URLWhitelist struct {
	patterns []glob.Glob
	raw      []string
}

// NewURLWhitelist compiles the given patterns.
func NewURLWhitelist(patterns []string) (*URLWhitelist, error) {
	w := &URLWhitelist{raw: patterns}
	for _, pattern := range patterns {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid URL pattern %q: %w", pattern, err)
		}
		w.patterns = append(w.patterns, compiled)
	}
	return w, nil
}

// Check returns nil when the URL is allowed.
func (w *URLWhitelist) Check(url string) error {
	if len(w.patterns) == 0 {
		return nil
	}
	for _, pattern := range w.patterns {
		if pattern.Match(url) {
			return nil
		}
	}
	return fmt.Errorf("url %q does not match any allowed pattern %v", url, w.raw)
}
