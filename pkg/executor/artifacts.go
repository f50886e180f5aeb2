package executor

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/entrhq/capture/pkg/agent"
	"github.com/entrhq/capture/pkg/browser"
	"github.com/entrhq/capture/pkg/logging"
	"github.com/entrhq/capture/pkg/security/paths"
)

// Recorder extracts the artifact trail of one run: it decodes the
// agent's screenshots into the run's output directory and accumulates
// token usage onto the run record.
type Recorder struct {
	now func() time.Time
	log *logging.Logger
}

// NewRecorder creates a recorder.
func NewRecorder() *Recorder {
	log, _ := logging.NewLogger("artifacts")
	return &Recorder{now: time.Now, log: log}
}

// Record writes the history's screenshots into run.OutputDir and
// appends their records to the run. A screenshot that fails to decode
// or write is skipped; the rest of the trail is preserved. Token usage
// is accumulated regardless of screenshot outcomes.
func (rec *Recorder) Record(run *TaskRun, history *agent.History) error {
	run.Usage.Add(history.Usage())

	guard, err := paths.NewGuard(run.OutputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(run.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", run.OutputDir, err)
	}

	for _, shot := range history.Screenshots() {
		step := len(run.Screenshots)
		name := fmt.Sprintf("step_%d", step)
		file := fmt.Sprintf("%02d_%s.png", step, name)

		path, err := guard.Resolve(file)
		if err != nil {
			rec.log.Warnf("skipping screenshot %d: %v", step, err)
			continue
		}
		data, err := base64.StdEncoding.DecodeString(shot)
		if err != nil {
			rec.log.Warnf("skipping screenshot %d: decode failed: %v", step, err)
			continue
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			rec.log.Warnf("skipping screenshot %d: write failed: %v", step, err)
			continue
		}

		run.Screenshots = append(run.Screenshots, ScreenshotRecord{
			Step:      step,
			Name:      name,
			Timestamp: rec.now(),
			File:      file,
		})
	}
	return nil
}

// RecordFinalState captures one screenshot of the browser's current
// state directly, used as a fallback when the agent produced none.
func (rec *Recorder) RecordFinalState(run *TaskRun, driver browser.Driver) error {
	guard, err := paths.NewGuard(run.OutputDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(run.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", run.OutputDir, err)
	}

	data, err := driver.Screenshot()
	if err != nil {
		return fmt.Errorf("final state capture failed: %w", err)
	}

	step := len(run.Screenshots)
	file := fmt.Sprintf("%02d_final_state.png", step)
	path, err := guard.Resolve(file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write final state screenshot: %w", err)
	}

	run.Screenshots = append(run.Screenshots, ScreenshotRecord{
		Step:      step,
		Name:      "final_state",
		Timestamp: rec.now(),
		File:      file,
	})
	return nil
}
