package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/llm"
	"github.com/entrhq/capture/pkg/logging"
)

const systemPrompt = `You are a browser automation agent. You control a real browser one action at a time.

Each turn you receive the current page state (URL, title, cleaned HTML) and the result of your previous action. Respond with EXACTLY ONE JSON object and nothing else:

{"action": "navigate", "url": "https://...", "reason": "..."}
{"action": "click", "selector": "css selector", "reason": "..."}
{"action": "fill", "selector": "css selector", "value": "text", "reason": "..."}
{"action": "wait", "seconds": 3, "reason": "..."}
{"action": "reload", "reason": "..."}
{"action": "done", "reason": "task complete"}
{"action": "fail", "reason": "why the task cannot be completed"}

Rules:
- Use CSS selectors present in the provided HTML.
- When waiting for a human to enter a 2FA code, use the wait action. Do not retry login; if it does not succeed after the full wait, report fail.
- After finishing the main task, save, wait, reload the page to confirm persistence, then report done.`

// MaxInstructionTokens bounds the instruction size accepted by the
// runner; larger instructions indicate a caller bug and would blow the
// model context once page snapshots are added.
const MaxInstructionTokens = 8000

// Default limits for the action loop.
const (
	DefaultMaxSteps       = 20
	defaultSnapshotLength = 8000
	maxWaitSeconds        = 30
)

// LLMRunner is the reference Runner: an iterative loop that asks the
// model for the next action, executes it on the browser, and captures a
// screenshot per step.
type LLMRunner struct {
	provider     llm.Provider
	maxSteps     int
	handlesLogin bool
	urlPolicy    func(url string) error
	sleep        func(time.Duration)
	log          *logging.Logger
}

// RunnerOption configures an LLMRunner.
type RunnerOption func(*LLMRunner)

// WithMaxSteps bounds the number of actions per run.
func WithMaxSteps(n int) RunnerOption {
	return func(r *LLMRunner) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

// WithLoginHandling declares that the runner drives login itself, so
// the controller should skip its login sequencer.
func WithLoginHandling(handles bool) RunnerOption {
	return func(r *LLMRunner) {
		r.handlesLogin = handles
	}
}

// WithURLPolicy installs a navigation policy checked before every
// navigate action. A non-nil error blocks the navigation; the error is
// reported back to the model as the action result.
func WithURLPolicy(policy func(url string) error) RunnerOption {
	return func(r *LLMRunner) {
		r.urlPolicy = policy
	}
}

// withSleep replaces the wait implementation, for tests.
func withSleep(sleep func(time.Duration)) RunnerOption {
	return func(r *LLMRunner) {
		r.sleep = sleep
	}
}

// NewLLMRunner creates a runner backed by the given provider.
func NewLLMRunner(provider llm.Provider, opts ...RunnerOption) *LLMRunner {
	log, _ := logging.NewLogger("agent")
	r := &LLMRunner{
		provider: provider,
		maxSteps: DefaultMaxSteps,
		sleep:    time.Sleep,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandlesLogin implements LoginHandler.
func (r *LLMRunner) HandlesLogin() bool {
	return r.handlesLogin
}

// Run executes the instruction against the driver. The returned history
// is valid (possibly partial) even when an error is returned, so the
// caller can extract whatever was captured before the failure.
func (r *LLMRunner) Run(ctx context.Context, req Request) (*History, error) {
	history := &History{}

	if estimate := llm.EstimateTokens(r.provider.Model(), req.Instruction); estimate > MaxInstructionTokens {
		return history, fmt.Errorf("instruction too large: ~%d tokens (limit %d)", estimate, MaxInstructionTokens)
	}

	messages := []*llm.Message{
		llm.NewSystemMessage(systemPrompt),
		llm.NewUserMessage(req.Instruction),
	}

	urlPolicy := r.urlPolicy
	if req.URLPolicy != nil {
		urlPolicy = req.URLPolicy
	}

	lastResult := "none yet"
	for stepIndex := 0; stepIndex < r.maxSteps; stepIndex++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		messages = append(messages, llm.NewUserMessage(r.observe(req.Driver, lastResult)))

		completion, err := r.provider.Complete(ctx, messages)
		if err != nil {
			return history, fmt.Errorf("model call failed: %w", err)
		}
		history.TokenUsage.Add(completion.Usage)
		messages = append(messages, llm.NewAssistantMessage(completion.Content))

		action, err := ParseAction(completion.Content)
		if err != nil {
			// Give the model one look at its own malformed output.
			r.log.Warnf("unparseable action at step %d: %v", stepIndex, err)
			lastResult = fmt.Sprintf("previous response was not a valid action: %v", err)
			continue
		}

		r.log.Infof("step %d: %s", stepIndex, action.Describe())
		actionErr := r.execute(ctx, req.Driver, action, urlPolicy)

		step := Step{
			Index:     len(history.Steps),
			Action:    *action,
			Timestamp: time.Now(),
			Err:       actionErr,
		}
		if shot, shotErr := req.Driver.Screenshot(); shotErr == nil {
			step.Screenshot = base64.StdEncoding.EncodeToString(shot)
		} else {
			r.log.Warnf("screenshot failed at step %d: %v", stepIndex, shotErr)
		}
		history.Steps = append(history.Steps, step)

		switch {
		case action.Type == ActionDone:
			history.Completed = true
			return history, nil
		case action.Type == ActionFail:
			history.FailureReason = action.Reason
			return history, nil
		case actionErr != nil:
			lastResult = fmt.Sprintf("action %q failed: %v", action.Describe(), actionErr)
		default:
			lastResult = fmt.Sprintf("action %q succeeded", action.Describe())
		}
	}

	return history, fmt.Errorf("step limit reached (%d) without completion", r.maxSteps)
}

// observe builds the per-iteration observation message.
func (r *LLMRunner) observe(driver browser.Driver, lastResult string) string {
	snapshot, err := driver.Snapshot(defaultSnapshotLength)
	if err != nil {
		r.log.Warnf("page snapshot failed: %v", err)
		return fmt.Sprintf("Current URL: %s\nPage state unavailable: %v\nLast action result: %s",
			driver.URL(), err, lastResult)
	}
	return fmt.Sprintf("Current URL: %s\nTitle: %s\nLast action result: %s\n\nPage HTML:\n%s",
		snapshot.URL, snapshot.Title, lastResult, snapshot.HTML)
}

// execute performs one action on the driver.
func (r *LLMRunner) execute(ctx context.Context, driver browser.Driver, action *Action, urlPolicy func(string) error) error {
	switch action.Type {
	case ActionNavigate:
		if urlPolicy != nil {
			if err := urlPolicy(action.URL); err != nil {
				return err
			}
		}
		return driver.Navigate(action.URL, browser.NavigateOptions{WaitUntil: "networkidle"})
	case ActionClick:
		return driver.Click(action.Selector)
	case ActionFill:
		return driver.Fill(action.Selector, action.Value)
	case ActionWait:
		seconds := action.Seconds
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.sleep(time.Duration(seconds) * time.Second)
		return nil
	case ActionReload:
		return driver.Reload()
	case ActionDone, ActionFail:
		return nil
	}
	return fmt.Errorf("unknown action type %q", action.Type)
}
