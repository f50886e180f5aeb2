package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/entrhq/capture/pkg/agent"
	"github.com/entrhq/capture/pkg/apps"
	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/config"
	"github.com/entrhq/capture/pkg/llm/openai"
	"github.com/entrhq/capture/pkg/logging"
	"github.com/entrhq/capture/pkg/usage"
)

// State is a task lifecycle phase. Transitions are logged; the run
// record does not retain past states.
type State string

// Task lifecycle states in transition order. A timed-out agent phase
// still proceeds to artifact extraction.
const (
	StateInit               State = "INIT"
	StateBrowserStarting    State = "BROWSER_STARTING"
	StateAgentRunning       State = "AGENT_RUNNING"
	StateAgentDone          State = "AGENT_DONE"
	StateAgentTimedOut      State = "AGENT_TIMED_OUT"
	StateArtifactExtraction State = "ARTIFACT_EXTRACTION"
	StateManifestWritten    State = "MANIFEST_WRITTEN"
	StateTerminated         State = "TERMINATED"
)

// timeoutGracePeriod is how long the controller waits after the agent
// deadline for the runner goroutine to hand back its partial history.
const timeoutGracePeriod = 2 * time.Second

// SessionFactory acquires a browser driver for one run. The returned
// release function tears the session down and is called exactly once.
type SessionFactory interface {
	Acquire(opts browser.SessionOptions) (browser.Driver, func() error, error)
}

// managerFactory adapts SessionManager to the SessionFactory seam.
type managerFactory struct {
	manager *browser.SessionManager
}

func (f *managerFactory) Acquire(opts browser.SessionOptions) (browser.Driver, func() error, error) {
	if err := f.manager.Initialize(); err != nil {
		return nil, nil, err
	}
	session, err := f.manager.StartSession(opts)
	if err != nil {
		return nil, nil, err
	}
	return session, f.manager.CloseSession, nil
}

// Controller executes capture tasks end to end: it resolves the target
// application, acquires a browser session, runs the login handshake and
// the agent under a deadline, extracts artifacts, and writes the
// manifest. Execute never panics and never returns an error; every
// failure reduces to an error-status Result.
type Controller struct {
	settings *config.Settings
	registry *apps.Registry
	runner   agent.Runner
	sessions SessionFactory
	pricing  usage.Pricing
	recorder *Recorder
	now      func() time.Time
	sleep    func(time.Duration)
	log      *logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRunner substitutes the agent runner.
func WithRunner(runner agent.Runner) Option {
	return func(c *Controller) { c.runner = runner }
}

// WithSessionFactory substitutes the browser session source.
func WithSessionFactory(factory SessionFactory) Option {
	return func(c *Controller) { c.sessions = factory }
}

// WithPricing substitutes the cost table.
func WithPricing(pricing usage.Pricing) Option {
	return func(c *Controller) { c.pricing = pricing }
}

// WithRegistry substitutes the application registry.
func WithRegistry(registry *apps.Registry) Option {
	return func(c *Controller) { c.registry = registry }
}

// withSleep substitutes blocking waits, for tests.
func withSleep(sleep func(time.Duration)) Option {
	return func(c *Controller) { c.sleep = sleep }
}

// NewController creates a controller. Without options it uses the
// built-in application registry, a Playwright-backed session manager,
// the default pricing table, and an LLM runner built from the settings.
// Building the default runner requires an API key; supplying a runner
// via WithRunner lifts that requirement.
func NewController(settings *config.Settings, opts ...Option) (*Controller, error) {
	log, _ := logging.NewLogger("executor")
	c := &Controller{
		settings: settings,
		registry: apps.Default(),
		sessions: &managerFactory{manager: browser.NewSessionManager()},
		pricing:  usage.DefaultPricing,
		recorder: NewRecorder(),
		now:      time.Now,
		sleep:    time.Sleep,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		provider, err := openai.NewProvider(settings.APIKey,
			openai.WithModel(settings.Model),
			openai.WithBaseURL(settings.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build agent runner: %w", err)
		}
		c.runner = agent.NewLLMRunner(provider, agent.WithMaxSteps(settings.MaxAgentSteps))
	}
	return c, nil
}

// ExecuteTask detects the target application from the task text and
// executes the task against it.
func (c *Controller) ExecuteTask(ctx context.Context, task string) *Result {
	key := c.registry.Detect(task)
	if key == "" {
		return errorResult("could not detect a supported application in task: %q (known: %v)",
			task, c.registry.Keys())
	}
	return c.Execute(ctx, task, key)
}

// Execute runs one task against the named application. The returned
// result is never nil.
func (c *Controller) Execute(ctx context.Context, task, appKey string) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("panic during task execution: %v", r)
			result = errorResult("internal error: %v", r)
		}
	}()

	profile := c.registry.Get(appKey)
	if profile == nil {
		return errorResult("unknown application %q (known: %v)", appKey, c.registry.Keys())
	}

	run := &TaskRun{
		Profile:   profile,
		Task:      task,
		StartedAt: c.now(),
	}
	run.ID = NewRunID(run.StartedAt)
	run.OutputDir = filepath.Join(c.settings.OutputDir, run.ID)

	c.transition(run, StateInit)
	c.log.Infof("run %s: %q against %s", run.ID, task, profile.Name)

	c.transition(run, StateBrowserStarting)
	driver, release, err := c.sessions.Acquire(browser.SessionOptions{
		UserDataDir:    c.settings.ProfileDir,
		ExecutablePath: c.settings.ExecutablePath,
		Headless:       c.settings.Headless,
	})
	if err != nil {
		return errorResult("failed to start browser session: %v", err)
	}
	defer func() {
		if err := release(); err != nil {
			c.log.Warnf("run %s: session release: %v", run.ID, err)
		}
		c.transition(run, StateTerminated)
	}()

	c.login(ctx, run.Profile, driver)

	history, timedOut, runErr := c.runAgent(ctx, run, driver)
	if runErr != nil && !timedOut {
		return errorResult("agent execution failed: %v", runErr)
	}

	c.transition(run, StateArtifactExtraction)
	if err := c.recorder.Record(run, history); err != nil {
		return errorResult("artifact extraction failed: %v", err)
	}
	if len(run.Screenshots) == 0 {
		// Degraded trail: capture whatever the page shows now.
		if err := c.recorder.RecordFinalState(run, driver); err != nil {
			c.log.Warnf("run %s: fallback capture failed: %v", run.ID, err)
		}
	}

	manifest := BuildManifest(run, c.pricing, c.settings.ProfileDir)
	manifestPath, err := WriteManifest(run, manifest)
	if err != nil {
		return errorResult("failed to write manifest: %v", err)
	}
	c.transition(run, StateManifestWritten)

	if c.settings.PDFReport && len(run.Screenshots) > 0 {
		if _, err := WriteReport(run); err != nil {
			c.log.Warnf("run %s: report assembly failed: %v", run.ID, err)
		}
	}

	cost := c.pricing.Cost(run.Usage)
	result = &Result{
		Status:        StatusSuccess,
		App:           profile.Name,
		Screenshots:   len(run.Screenshots),
		OutputDir:     run.OutputDir,
		Manifest:      manifestPath,
		ChromeProfile: c.settings.ProfileDir,
		TotalTokens:   run.Usage.Total(),
		EstimatedCost: &cost,
	}
	if history != nil && history.FailureReason != "" {
		result.Status = StatusError
		result.Error = fmt.Sprintf("agent reported failure: %s", history.FailureReason)
	}
	return result
}

// login runs the scripted handshake unless the runner declares it
// drives login itself. All outcomes proceed: the agent's instruction
// repeats the login steps and stored cookies may already authenticate.
func (c *Controller) login(ctx context.Context, profile *apps.Profile, driver browser.Driver) {
	if handler, ok := c.runner.(agent.LoginHandler); ok && handler.HandlesLogin() {
		c.log.Infof("runner handles login, skipping handshake")
		return
	}
	sequencer := NewSequencer(profile, c.settings.Email, c.settings.Password)
	sequencer.sleep = c.sleep
	outcome := sequencer.Login(ctx, driver)
	c.log.Infof("login outcome: %s", outcome)
}

// runAgent invokes the runner under the profile-appropriate deadline.
// On timeout it waits a short grace period for the runner goroutine to
// surrender its partial history, then degrades to extraction.
func (c *Controller) runAgent(ctx context.Context, run *TaskRun, driver browser.Driver) (*agent.History, bool, error) {
	timeout := c.settings.AgentTimeout
	if run.Profile.HighComplexity {
		timeout = c.settings.ExtendedAgentTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var policy func(string) error
	if len(run.Profile.AllowedURLPatterns) > 0 {
		whitelist, err := NewURLWhitelist(run.Profile.AllowedURLPatterns)
		if err != nil {
			return nil, false, fmt.Errorf("invalid URL patterns for %s: %w", run.Profile.Name, err)
		}
		policy = whitelist.Check
	}

	instruction := buildInstruction(run.Profile, run.Task, c.settings.Email, c.settings.Password)

	c.transition(run, StateAgentRunning)
	type agentReturn struct {
		history *agent.History
		err     error
	}
	done := make(chan agentReturn, 1)
	go func() {
		history, err := c.runner.Run(runCtx, agent.Request{
			Instruction: instruction,
			Driver:      driver,
			URLPolicy:   policy,
		})
		done <- agentReturn{history: history, err: err}
	}()

	select {
	case ret := <-done:
		if errors.Is(ret.err, context.DeadlineExceeded) {
			c.transition(run, StateAgentTimedOut)
			c.log.Warnf("run %s: agent deadline exceeded after %s", run.ID, timeout)
			return ret.history, true, ret.err
		}
		c.transition(run, StateAgentDone)
		if ret.err != nil {
			c.log.Errorf("run %s: agent error: %v", run.ID, ret.err)
		}
		return ret.history, false, ret.err
	case <-runCtx.Done():
		c.transition(run, StateAgentTimedOut)
		c.log.Warnf("run %s: agent deadline exceeded after %s", run.ID, timeout)
		// Grace period for the runner to notice cancellation and return
		// whatever it captured so far.
		select {
		case ret := <-done:
			return ret.history, true, runCtx.Err()
		case <-time.After(timeoutGracePeriod):
			c.log.Warnf("run %s: runner did not surrender history within grace period", run.ID)
			return nil, true, runCtx.Err()
		}
	}
}

// transition logs a lifecycle state change.
func (c *Controller) transition(run *TaskRun, state State) {
	c.log.Infof("run %s: state %s", run.ID, state)
}
