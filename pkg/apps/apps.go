// Package apps defines the registry of supported target web applications
// and the detector that maps free-text task descriptions onto registry keys.
package apps

import (
	"fmt"
	"strings"
)

// Profile describes one supported target application: its entry points,
// login form locators, and timing hints for the authentication handshake.
type Profile struct {
	// Name is the human-readable application name used in manifests.
	Name string

	// URL is the application's main navigation entry point.
	URL string

	// LoginURL is the dedicated login page.
	LoginURL string

	// EmailField is the CSS selector for the identity input.
	EmailField string

	// PasswordField is the CSS selector for the secret input.
	PasswordField string

	// SubmitButton is the CSS selector for the login submit control.
	SubmitButton string

	// MFAWaitTime is the number of seconds to wait for a human-supplied
	// second factor before proceeding.
	MFAWaitTime int

	// HighComplexity marks applications that need the extended agent
	// deadline (300s instead of 180s).
	HighComplexity bool

	// AllowedURLPatterns restricts agent navigation to matching URLs.
	// Empty means unrestricted.
	AllowedURLPatterns []string
}

// Validate checks that the profile satisfies the registry invariants:
// non-empty locators and a positive MFA wait budget.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.URL == "" || p.LoginURL == "" {
		return fmt.Errorf("profile %q: URL and login URL are required", p.Name)
	}
	if p.EmailField == "" || p.PasswordField == "" || p.SubmitButton == "" {
		return fmt.Errorf("profile %q: all form locators are required", p.Name)
	}
	if p.MFAWaitTime <= 0 {
		return fmt.Errorf("profile %q: MFA wait time must be positive", p.Name)
	}
	return nil
}

// DefaultMFAWait is the default second-factor wait budget in seconds.
const DefaultMFAWait = 15

// Registry is an ordered lookup table of application profiles.
// Iteration order is insertion order, which makes detection
// deterministic but priority-sensitive.
type Registry struct {
	keys     []string
	profiles map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register adds a profile under the given key. Keys are stored
// lower-cased. Re-registering a key replaces the profile without
// changing its priority position.
func (r *Registry) Register(key string, profile *Profile) error {
	if key == "" {
		return fmt.Errorf("registry key is required")
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	key = strings.ToLower(key)
	if _, exists := r.profiles[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.profiles[key] = profile
	return nil
}

// Get returns the profile registered under key, or nil if unknown.
func (r *Registry) Get(key string) *Profile {
	return r.profiles[strings.ToLower(key)]
}

// Keys returns the registered keys in insertion order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Detect determines which registered application a task description
// references by case-insensitive substring match against registry keys.
// The first matching key in registration order wins. Returns the empty
// string when no key matches.
func (r *Registry) Detect(task string) string {
	taskLower := strings.ToLower(task)
	for _, key := range r.keys {
		if strings.Contains(taskLower, key) {
			return key
		}
	}
	return ""
}

// Default returns the built-in registry of supported applications.
func Default() *Registry {
	r := NewRegistry()
	for _, entry := range []struct {
		key     string
		profile *Profile
	}{
		{"notion", &Profile{
			Name:               "Notion",
			URL:                "https://www.notion.so",
			LoginURL:           "https://www.notion.so/login",
			EmailField:         "input[type='email']",
			PasswordField:      "input[type='password']",
			SubmitButton:       "button[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			AllowedURLPatterns: []string{"https://www.notion.so/*", "https://*.notion.so/*"},
		}},
		{"linear", &Profile{
			Name:               "Linear",
			URL:                "https://linear.app",
			LoginURL:           "https://linear.app/login",
			EmailField:         "input[type='email']",
			PasswordField:      "input[type='password']",
			SubmitButton:       "button[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			AllowedURLPatterns: []string{"https://linear.app/*"},
		}},
		{"asana", &Profile{
			Name:               "Asana",
			URL:                "https://app.asana.com",
			LoginURL:           "https://app.asana.com/-/login",
			EmailField:         "input[type='email']",
			PasswordField:      "input[type='password']",
			SubmitButton:       "button[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			AllowedURLPatterns: []string{"https://app.asana.com/*", "https://asana.com/*"},
		}},
		{"github", &Profile{
			Name:               "GitHub",
			URL:                "https://github.com",
			LoginURL:           "https://github.com/login",
			EmailField:         "input[name='login']",
			PasswordField:      "input[name='password']",
			SubmitButton:       "input[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			AllowedURLPatterns: []string{"https://github.com/*"},
		}},
		{"jira", &Profile{
			Name:               "Jira",
			URL:                "https://www.atlassian.com/software/jira",
			LoginURL:           "https://id.atlassian.com/login",
			EmailField:         "input[name='email']",
			PasswordField:      "input[name='password']",
			SubmitButton:       "button[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			AllowedURLPatterns: []string{"https://*.atlassian.com/*", "https://*.atlassian.net/*"},
		}},
		{"monday", &Profile{
			Name:               "Monday",
			URL:                "https://monday.com",
			LoginURL:           "https://auth.monday.com/login",
			EmailField:         "input[type='email']",
			PasswordField:      "input[type='password']",
			SubmitButton:       "button[type='submit']",
			MFAWaitTime:        DefaultMFAWait,
			HighComplexity:     true,
			AllowedURLPatterns: []string{"https://*.monday.com/*", "https://monday.com/*"},
		}},
	} {
		// Registration of the built-in table cannot fail; profiles are static.
		if err := r.Register(entry.key, entry.profile); err != nil {
			panic(fmt.Sprintf("invalid built-in profile %q: %v", entry.key, err))
		}
	}
	return r
}
