// Package executor implements the task execution lifecycle: it owns the
// browser session for one run, drives the login handshake, invokes the
// autonomous agent under a deadline, extracts the artifact trail, and
// persists the run manifest.
package executor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/capture/pkg/apps"
	"github.com/entrhq/capture/pkg/usage"
)

// TaskRun is the mutable record of one task execution. It is created at
// the start of Execute, filled in by the artifact recorder, and
// finalized by the manifest writer.
type TaskRun struct {
	// ID is unique per run within and across processes: a second-level
	// timestamp for human-sortable directories plus a UUID fragment to
	// rule out collisions between runs starting in the same second.
	ID string

	// Profile is the resolved target application.
	Profile *apps.Profile

	// Task is the original task text.
	Task string

	// Screenshots are the captured UI states in step order.
	Screenshots []ScreenshotRecord

	// Usage is the cumulative token accounting for the run.
	Usage usage.TokenUsage

	// OutputDir is the per-run output directory.
	OutputDir string

	// StartedAt is when the run was created.
	StartedAt time.Time
}

// ScreenshotRecord is one captured UI state. Step indices are assigned
// in strict insertion order starting at 0.
type ScreenshotRecord struct {
	Step      int       `json:"step"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	File      string    `json:"file"`
}

// NewRunID generates a run identifier.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("%s_%s", now.Format("20060102_150405"), uuid.New().String()[:8])
}

// Result is the outcome of one Execute invocation. Its JSON form is the
// CLI's primary output.
type Result struct {
	Status        string   `json:"status"`
	App           string   `json:"app,omitempty"`
	Screenshots   int      `json:"screenshots"`
	OutputDir     string   `json:"output_dir,omitempty"`
	Manifest      string   `json:"manifest,omitempty"`
	ChromeProfile string   `json:"chrome_profile,omitempty"`
	TotalTokens   int      `json:"total_tokens,omitempty"`
	EstimatedCost *float64 `json:"estimated_cost_usd,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IsSuccess reports whether the run produced a manifest.
func (r *Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// errorResult builds an error-status result.
func errorResult(format string, args ...interface{}) *Result {
	return &Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}
