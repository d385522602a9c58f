// File: internal/reporting/summary.go
package reporting

import (
	"fmt"
	"os"
)

// AppendStepSummary appends markdown to the GitHub Actions step summary
// file. Outside Actions (no GITHUB_STEP_SUMMARY) it reports false and does
// nothing, so local runs stay quiet.
func AppendStepSummary(markdown string) (bool, error) {
	path := os.Getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open step summary file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(markdown + "\n"); err != nil {
		return false, fmt.Errorf("failed to append to step summary: %w", err)
	}
	return true, nil
}

// WorkflowRunURL builds the URL of the current workflow run from the
// Actions environment, or empty when not running in Actions.
func WorkflowRunURL() string {
	server := os.Getenv("GITHUB_SERVER_URL")
	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if server == "" || repo == "" || runID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, runID)
}
