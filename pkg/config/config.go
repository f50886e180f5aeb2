// Package config holds runtime settings for the capture system.
//
// Settings are built explicitly and passed to the controller at
// construction. There is no ambient global configuration: the CLI loads
// an optional YAML file, applies environment overrides, validates, and
// hands the result down.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/capture/pkg/security/paths"
)

// Settings configures one capture process.
type Settings struct {
	// Email is the identity used during login.
	Email string `yaml:"email" json:"email"`

	// Password is the authentication secret. Sourced from the PASSWORD
	// environment variable; never logged in full.
	Password string `yaml:"-" json:"-"`

	// Headless controls whether the browser runs without a window.
	Headless bool `yaml:"headless" json:"headless"`

	// OutputDir is the base directory for per-run output directories.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// ProfileDir is the persistent browser profile directory holding
	// authentication cookies across runs. Concurrent runs against the
	// same profile directory are unsupported.
	ProfileDir string `yaml:"profile_dir" json:"profile_dir"`

	// ExecutablePath optionally points at a specific browser binary.
	ExecutablePath string `yaml:"executable_path" json:"executable_path"`

	// Model is the LLM model used by the default agent runner.
	Model string `yaml:"model" json:"model"`

	// APIKey authenticates against the LLM provider.
	APIKey string `yaml:"-" json:"-"`

	// BaseURL overrides the LLM provider endpoint.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// AgentTimeout is the default agent execution deadline.
	AgentTimeout time.Duration `yaml:"agent_timeout" json:"agent_timeout"`

	// ExtendedAgentTimeout is the deadline for high-complexity apps.
	ExtendedAgentTimeout time.Duration `yaml:"extended_agent_timeout" json:"extended_agent_timeout"`

	// MaxAgentSteps bounds the default runner's action loop.
	MaxAgentSteps int `yaml:"max_agent_steps" json:"max_agent_steps"`

	// PDFReport enables assembling the run's screenshots into report.pdf.
	PDFReport bool `yaml:"pdf_report" json:"pdf_report"`
}

// Defaults mirrored from the reference usage pattern.
const (
	DefaultEmail                = "anish.gillella@gmail.com"
	DefaultModel                = "gpt-4o"
	DefaultOutputDir            = "./outputs"
	DefaultAgentTimeout         = 180 * time.Second
	DefaultExtendedAgentTimeout = 300 * time.Second
	DefaultMaxAgentSteps        = 20
)

// DefaultSettings returns settings with built-in defaults and
// environment overrides applied.
func DefaultSettings() *Settings {
	s := &Settings{
		Email:                DefaultEmail,
		OutputDir:            DefaultOutputDir,
		Model:                DefaultModel,
		AgentTimeout:         DefaultAgentTimeout,
		ExtendedAgentTimeout: DefaultExtendedAgentTimeout,
		MaxAgentSteps:        DefaultMaxAgentSteps,
	}
	if home, err := os.UserHomeDir(); err == nil {
		s.ProfileDir = filepath.Join(home, ".capture-chrome")
	}
	s.applyEnv()
	return s
}

// Load reads settings from a YAML file, then applies environment
// overrides on top. A missing file is not an error; defaults are used.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Env wins over file values for secrets and identity.
	s.applyEnv()
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := os.Getenv("CAPTURE_EMAIL"); v != "" {
		s.Email = v
	}
	if v := os.Getenv("PASSWORD"); v != "" {
		s.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		s.BaseURL = v
	}
	if v := os.Getenv("CAPTURE_OUTPUT_DIR"); v != "" {
		s.OutputDir = v
	}
	if v := os.Getenv("CAPTURE_PROFILE_DIR"); v != "" {
		s.ProfileDir = v
	}
	if v := os.Getenv("CAPTURE_BROWSER_PATH"); v != "" {
		s.ExecutablePath = v
	}
}

// ExpandPaths expands user-relative (~) directory settings in place.
// File and environment values may use tilde paths; the rest of the
// system expects them resolved.
func (s *Settings) ExpandPaths() error {
	for _, field := range []*string{&s.OutputDir, &s.ProfileDir, &s.ExecutablePath} {
		if *field == "" {
			continue
		}
		expanded, err := paths.Expand(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}

// Validate checks hard preconditions and returns warnings for soft
// ones. An empty password is a warning, not an error: login may still
// be completed by a human in the browser during the MFA wait window.
func (s *Settings) Validate() ([]string, error) {
	var warnings []string

	if s.Email == "" {
		return warnings, fmt.Errorf("email is required")
	}
	if s.OutputDir == "" {
		return warnings, fmt.Errorf("output directory is required")
	}
	if s.AgentTimeout <= 0 || s.ExtendedAgentTimeout <= 0 {
		return warnings, fmt.Errorf("agent timeouts must be positive")
	}
	if s.MaxAgentSteps <= 0 {
		return warnings, fmt.Errorf("max agent steps must be positive")
	}

	if s.Password == "" {
		warnings = append(warnings, "PASSWORD is not set: login will proceed with an empty secret and rely on in-browser completion")
	}
	if s.APIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY is not set: the default agent runner will not be able to call the model")
	}

	return warnings, nil
}

// RedactedPassword returns a display-safe form of the secret.
func (s *Settings) RedactedPassword() string {
	if s.Password == "" {
		return "(empty)"
	}
	return "****"
}
