package executor

import (
	"fmt"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ReportFileName is the optional PDF report's file name inside the run
// directory.
const ReportFileName = "report.pdf"

// WriteReport assembles the run's screenshots, one per page in step
// order, into report.pdf inside the run directory and returns its path.
// Requires at least one screenshot.
func WriteReport(run *TaskRun) (string, error) {
	if len(run.Screenshots) == 0 {
		return "", fmt.Errorf("no screenshots to assemble into a report")
	}

	imgFiles := make([]string, 0, len(run.Screenshots))
	for _, shot := range run.Screenshots {
		imgFiles = append(imgFiles, filepath.Join(run.OutputDir, shot.File))
	}

	path := filepath.Join(run.OutputDir, ReportFileName)
	if err := api.ImportImagesFile(imgFiles, path, nil, nil); err != nil {
		return "", fmt.Errorf("failed to assemble report: %w", err)
	}
	return path, nil
}
