package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/capture/pkg/agent"
	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/config"
	"github.com/entrhq/capture/pkg/usage"
)

// fakeDriver is an in-memory browser.Driver recording interactions.
type fakeDriver struct {
	mu        sync.Mutex
	url       string
	navigated []string
	filled    map[string]string
	clicked   []string

	evalResult interface{}
	evalErr    error
	shot       []byte
	shotErr    error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		filled:     make(map[string]string),
		evalResult: true,
		shot:       []byte("fake-png-bytes"),
	}
}

func (d *fakeDriver) Navigate(url string, opts browser.NavigateOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) Fill(selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.filled[selector] = value
	return nil
}

func (d *fakeDriver) Click(selector string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicked = append(d.clicked, selector)
	return nil
}

func (d *fakeDriver) Evaluate(script string) (interface{}, error) {
	return d.evalResult, d.evalErr
}

func (d *fakeDriver) Screenshot() ([]byte, error) {
	return d.shot, d.shotErr
}

func (d *fakeDriver) Snapshot(maxLength int) (*browser.PageSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &browser.PageSnapshot{URL: d.url, Title: "fake page", HTML: "<main></main>"}, nil
}

func (d *fakeDriver) Reload() error { return nil }

func (d *fakeDriver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// fakeFactory hands out a fixed driver and counts releases.
type fakeFactory struct {
	driver   browser.Driver
	err      error
	released int
}

func (f *fakeFactory) Acquire(opts browser.SessionOptions) (browser.Driver, func() error, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.driver, func() error { f.released++; return nil }, nil
}

// fakeRunner returns a scripted history. handlesLogin skips the
// controller's login handshake so tests avoid the poll loop.
type fakeRunner struct {
	history       *agent.History
	err           error
	blockUntilCtx bool
	handlesLogin  bool
	gotRequest    agent.Request
}

func (r *fakeRunner) Run(ctx context.Context, req agent.Request) (*agent.History, error) {
	r.gotRequest = req
	if r.blockUntilCtx {
		<-ctx.Done()
		return r.history, ctx.Err()
	}
	return r.history, r.err
}

func (r *fakeRunner) HandlesLogin() bool { return r.handlesLogin }

func encodeShot(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func historyWithShots(n int) *agent.History {
	h := &agent.History{
		TokenUsage: usage.TokenUsage{InputTokens: 300, OutputTokens: 60},
		Completed:  true,
	}
	for i := 0; i < n; i++ {
		h.Steps = append(h.Steps, agent.Step{
			Index:      i,
			Screenshot: encodeShot(fmt.Sprintf("shot-%d", i)),
			Timestamp:  time.Now(),
		})
	}
	return h
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		Email:                "tester@example.com",
		Password:             "hunter2",
		OutputDir:            t.TempDir(),
		ProfileDir:           filepath.Join(t.TempDir(), "profile"),
		Model:                "gpt-4o",
		AgentTimeout:         5 * time.Second,
		ExtendedAgentTimeout: 10 * time.Second,
		MaxAgentSteps:        20,
	}
}

func newTestController(t *testing.T, settings *config.Settings, runner agent.Runner, factory SessionFactory) *Controller {
	t.Helper()
	c, err := NewController(settings,
		WithRunner(runner),
		WithSessionFactory(factory),
		withSleep(func(time.Duration) {}),
	)
	require.NoError(t, err)
	return c
}

func TestExecuteTaskEndToEnd(t *testing.T) {
	settings := testSettings(t)
	runner := &fakeRunner{history: historyWithShots(3), handlesLogin: true}
	factory := &fakeFactory{driver: newFakeDriver()}
	c := newTestController(t, settings, runner, factory)

	result := c.ExecuteTask(context.Background(), "Create an issue in GitHub titled Hello")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, "GitHub", result.App)
	assert.Equal(t, 3, result.Screenshots)
	assert.Equal(t, 360, result.TotalTokens)
	require.NotNil(t, result.EstimatedCost)
	assert.InDelta(t, 300.0/1e6*2.50+60.0/1e6*10.00, *result.EstimatedCost, 1e-9)
	assert.Equal(t, 1, factory.released)

	// Instruction carries the task and the credentials verbatim.
	assert.Contains(t, runner.gotRequest.Instruction, "Create an issue in GitHub")
	assert.Contains(t, runner.gotRequest.Instruction, settings.Email)
	assert.Contains(t, runner.gotRequest.Instruction, settings.Password)

	var manifest map[string]interface{}
	data, err := os.ReadFile(result.Manifest)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "GitHub", manifest["app"])
	assert.EqualValues(t, 3, manifest["screenshots_count"])
	assert.Equal(t, settings.ProfileDir, manifest["cookies_stored_in"])

	tokenUsage, ok := manifest["token_usage"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 360, tokenUsage["total_tokens"])

	// Screenshot files exist on disk under the run directory.
	for i := 0; i < 3; i++ {
		path := filepath.Join(result.OutputDir, fmt.Sprintf("%02d_step_%d.png", i, i))
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr, "missing %s", path)
	}
}

func TestExecuteTaskUnknownApp(t *testing.T) {
	settings := testSettings(t)
	c := newTestController(t, settings, &fakeRunner{handlesLogin: true}, &fakeFactory{driver: newFakeDriver()})

	result := c.ExecuteTask(context.Background(), "water my plants")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "could not detect")
}

func TestExecuteSessionAcquisitionFailure(t *testing.T) {
	settings := testSettings(t)
	factory := &fakeFactory{err: fmt.Errorf("browser refused to start")}
	c := newTestController(t, settings, &fakeRunner{handlesLogin: true}, factory)

	result := c.Execute(context.Background(), "Create a page in Notion", "notion")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "browser refused to start")
	assert.Zero(t, factory.released)
}

func TestExecuteAgentTimeoutDegradesToFallback(t *testing.T) {
	settings := testSettings(t)
	settings.AgentTimeout = 50 * time.Millisecond

	// The runner blocks until the deadline, then surrenders an empty
	// history; the controller falls back to a final-state capture.
	runner := &fakeRunner{history: &agent.History{}, blockUntilCtx: true, handlesLogin: true}
	driver := newFakeDriver()
	c := newTestController(t, settings, runner, &fakeFactory{driver: driver})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, 1, result.Screenshots)
	_, err := os.Stat(filepath.Join(result.OutputDir, "00_final_state.png"))
	assert.NoError(t, err)
}

func TestExecuteAgentTimeoutWithPartialHistory(t *testing.T) {
	settings := testSettings(t)
	settings.AgentTimeout = 50 * time.Millisecond

	runner := &fakeRunner{history: historyWithShots(2), blockUntilCtx: true, handlesLogin: true}
	c := newTestController(t, settings, runner, &fakeFactory{driver: newFakeDriver()})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, 2, result.Screenshots)
}

func TestExecuteAgentErrorIsReported(t *testing.T) {
	settings := testSettings(t)
	runner := &fakeRunner{history: &agent.History{}, err: fmt.Errorf("model unreachable"), handlesLogin: true}
	c := newTestController(t, settings, runner, &fakeFactory{driver: newFakeDriver()})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "model unreachable")
}

func TestExecuteAgentReportedFailureStillWritesManifest(t *testing.T) {
	settings := testSettings(t)
	history := historyWithShots(1)
	history.Completed = false
	history.FailureReason = "login wall could not be passed"
	runner := &fakeRunner{history: history, handlesLogin: true}
	c := newTestController(t, settings, runner, &fakeFactory{driver: newFakeDriver()})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "login wall")
	assert.Equal(t, 1, result.Screenshots)
	_, err := os.Stat(result.Manifest)
	assert.NoError(t, err, "manifest should exist even for agent-reported failures")
}

func TestExecuteFallbackCaptureFailureStillSucceeds(t *testing.T) {
	settings := testSettings(t)
	driver := newFakeDriver()
	driver.shotErr = fmt.Errorf("page gone")
	runner := &fakeRunner{history: &agent.History{}, handlesLogin: true}
	c := newTestController(t, settings, runner, &fakeFactory{driver: driver})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, 0, result.Screenshots)
	_, err := os.Stat(result.Manifest)
	assert.NoError(t, err)
}

func TestExecuteRunsLoginSequencerWhenRunnerDoesNot(t *testing.T) {
	settings := testSettings(t)
	driver := newFakeDriver()
	runner := &fakeRunner{history: historyWithShots(1), handlesLogin: false}
	c := newTestController(t, settings, runner, &fakeFactory{driver: driver})

	result := c.Execute(context.Background(), "Create an issue in GitHub", "github")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Contains(t, driver.navigated, "https://github.com/login")
	assert.Equal(t, settings.Email, driver.filled["input[name='login']"])
	assert.Equal(t, settings.Password, driver.filled["input[name='password']"])
}

func TestExecuteHighComplexityUsesExtendedTimeout(t *testing.T) {
	settings := testSettings(t)
	settings.AgentTimeout = 10 * time.Millisecond
	settings.ExtendedAgentTimeout = 5 * time.Second

	// A runner that takes longer than the base deadline but well within
	// the extended one still completes for a high-complexity app.
	runner := &slowRunner{delay: 100 * time.Millisecond, history: historyWithShots(1)}
	c := newTestController(t, settings, runner, &fakeFactory{driver: newFakeDriver()})

	result := c.Execute(context.Background(), "Create a board in Monday", "monday")

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, 1, result.Screenshots)
}

type slowRunner struct {
	delay   time.Duration
	history *agent.History
}

func (r *slowRunner) Run(ctx context.Context, req agent.Request) (*agent.History, error) {
	select {
	case <-ctx.Done():
		return &agent.History{}, ctx.Err()
	case <-time.After(r.delay):
		return r.history, nil
	}
}

func (r *slowRunner) HandlesLogin() bool { return true }
