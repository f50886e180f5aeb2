package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/capture/pkg/usage"
)

// ManifestFileName is the manifest's file name inside the run directory.
const ManifestFileName = "manifest.json"

// Manifest is the machine-readable record of one completed run.
type Manifest struct {
	Task             string             `json:"task"`
	App              string             `json:"app"`
	ExecutedAt       time.Time          `json:"executed_at"`
	ScreenshotsCount int                `json:"screenshots_count"`
	Screenshots      []ScreenshotRecord `json:"screenshots"`
	TokenUsage       manifestTokenUsage `json:"token_usage"`
	Cost             usage.CostEstimate `json:"cost"`
	CookiesStoredIn  string             `json:"cookies_stored_in"`
}

// manifestTokenUsage is the manifest's token accounting shape: the raw
// counters plus a precomputed total so consumers need no arithmetic.
type manifestTokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	CachedTokens int `json:"cached_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// BuildManifest assembles the manifest for a finished run.
func BuildManifest(run *TaskRun, pricing usage.Pricing, profileDir string) *Manifest {
	screenshots := run.Screenshots
	if screenshots == nil {
		screenshots = []ScreenshotRecord{}
	}
	return &Manifest{
		Task:             run.Task,
		App:              run.Profile.Name,
		ExecutedAt:       run.StartedAt,
		ScreenshotsCount: len(screenshots),
		Screenshots:      screenshots,
		TokenUsage: manifestTokenUsage{
			InputTokens:  run.Usage.InputTokens,
			OutputTokens: run.Usage.OutputTokens,
			CachedTokens: run.Usage.CachedTokens,
			TotalTokens:  run.Usage.Total(),
		},
		Cost:            pricing.Estimate(run.Usage),
		CookiesStoredIn: profileDir,
	}
}

// WriteManifest persists the manifest into the run directory and
// returns its path.
func WriteManifest(run *TaskRun, manifest *Manifest) (string, error) {
	if err := os.MkdirAll(run.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", run.OutputDir, err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(run.OutputDir, ManifestFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}
