// Package paths confines artifact writes to a run's output directory
// and expands user-relative configuration paths. Run directories hold
// user-visible files named after model-influenced labels, so every
// write goes through a guard that rejects traversal outside the base.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Expand expands a leading tilde to the user's home directory and
// cleans the result. Paths without a tilde are cleaned only.
func Expand(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return filepath.Clean(path), nil
}

// Guard confines file placement to a base directory.
type Guard struct {
	baseDir string
}

// NewGuard creates a guard rooted at baseDir. The base is
// tilde-expanded and made absolute.
func NewGuard(baseDir string) (*Guard, error) {
	expanded, err := Expand(baseDir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return &Guard{baseDir: abs}, nil
}

// BaseDir returns the absolute base directory.
func (g *Guard) BaseDir() string {
	return g.baseDir
}

// Resolve maps a file name to its absolute path under the base
// directory, rejecting names that would escape it.
func (g *Guard) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("file name %q must be relative", name)
	}

	resolved := filepath.Clean(filepath.Join(g.baseDir, name))
	if !g.contains(resolved) {
		return "", fmt.Errorf("file name %q escapes the output directory", name)
	}
	return resolved, nil
}

// contains reports whether the absolute path is the base directory or
// inside it.
func (g *Guard) contains(abs string) bool {
	if abs == g.baseDir {
		return true
	}
	return strings.HasPrefix(abs, g.baseDir+string(filepath.Separator))
}
