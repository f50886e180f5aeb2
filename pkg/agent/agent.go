// Package agent defines the autonomous agent capability consumed by the
// task execution controller, and provides a reference implementation
// that drives a browser through an iterative LLM action loop.
//
// The controller treats runners as opaque: it hands over a
// natural-language instruction and a live browser driver, and receives
// an execution history (screenshots plus token accounting) back. Any
// runner satisfying the Runner interface can be substituted.
package agent

import (
	"context"
	"time"

	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/usage"
)

// Request carries one agent invocation.
type Request struct {
	// Instruction is the full natural-language task handed to the agent,
	// including login and verification steps.
	Instruction string

	// Driver is the live browser session the agent operates on.
	Driver browser.Driver

	// URLPolicy, when set, is consulted before every navigation. A
	// non-nil error blocks the navigation. Overrides any policy the
	// runner was constructed with.
	URLPolicy func(url string) error
}

// Runner is the autonomous agent capability. Run blocks until the agent
// finishes, fails, or ctx expires; the returned history may be partial
// when the context is canceled mid-run.
type Runner interface {
	Run(ctx context.Context, req Request) (*History, error)
}

// LoginHandler is an optional capability: runners that drive the login
// flow themselves implement it and return true, in which case the
// controller skips its own login sequencer.
type LoginHandler interface {
	HandlesLogin() bool
}

// Step records one executed agent action and the UI state after it.
type Step struct {
	// Index is the 0-based position of the step in execution order.
	Index int

	// Action describes what the agent did.
	Action Action

	// Screenshot is the base64-encoded PNG captured after the action,
	// or empty if capture failed.
	Screenshot string

	// Timestamp is when the step completed.
	Timestamp time.Time

	// Err holds the action's failure, if any. Action failures are
	// recorded and reported to the model; they do not abort the run.
	Err error
}

// History is the agent's record of one invocation.
type History struct {
	// Steps in execution order.
	Steps []Step

	// TokenUsage accumulated across all model calls, zero-valued when
	// the runner performs none.
	TokenUsage usage.TokenUsage

	// Completed is true when the agent reported the task done.
	Completed bool

	// FailureReason is set when the agent reported failure.
	FailureReason string
}

// Screenshots returns the base64-encoded screenshots in step order,
// skipping steps whose capture failed.
func (h *History) Screenshots() []string {
	if h == nil {
		return nil
	}
	shots := make([]string, 0, len(h.Steps))
	for _, step := range h.Steps {
		if step.Screenshot != "" {
			shots = append(shots, step.Screenshot)
		}
	}
	return shots
}

// Usage returns the accumulated token usage.
func (h *History) Usage() usage.TokenUsage {
	if h == nil {
		return usage.TokenUsage{}
	}
	return h.TokenUsage
}
