// File: internal/reporting/summary_test.go
package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendStepSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.md")
	t.Setenv("GITHUB_STEP_SUMMARY", path)

	written, err := AppendStepSummary("## First")
	require.NoError(t, err)
	assert.True(t, written)

	written, err = AppendStepSummary("## Second")
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## First\n## Second\n", string(data))
}

func TestAppendStepSummaryOutsideActions(t *testing.T) {
	t.Setenv("GITHUB_STEP_SUMMARY", "")

	written, err := AppendStepSummary("## Report")
	require.NoError(t, err)
	assert.False(t, written)
}

func TestWorkflowRunURL(t *testing.T) {
	t.Setenv("GITHUB_SERVER_URL", "https://github.com")
	t.Setenv("GITHUB_REPOSITORY", "acme/api")
	t.Setenv("GITHUB_RUN_ID", "991234")

	assert.Equal(t, "https://github.com/acme/api/actions/runs/991234", WorkflowRunURL())

	t.Setenv("GITHUB_RUN_ID", "")
	assert.Empty(t, WorkflowRunURL())
}
