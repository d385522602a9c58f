// File: internal/health/health_test.go
package health_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/health"
	"github.com/xkilldash9x/pipewatch/internal/store"
)

// initRepo creates a repository with one commit at the given time.
func initRepo(t *testing.T, committedAt time.Time) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  committedAt,
		},
		Committer: &object.Signature{
			Name:  "tester",
			Email: "tester@example.com",
			When:  committedAt,
		},
	})
	require.NoError(t, err)
	return dir
}

func checkByName(t *testing.T, report *schemas.HealthReport, name string) schemas.HealthCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q in report", name)
	return schemas.HealthCheck{}
}

func newChecker(t *testing.T, cfg config.HealthConfig) (*health.Checker, *store.FS) {
	t.Helper()
	st, err := store.NewFS(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return health.NewChecker(cfg, st, zaptest.NewLogger(t)), st
}

func TestRunHealthyRepository(t *testing.T) {
	repoDir := initRepo(t, time.Now().Add(-time.Hour))
	checker, _ := newChecker(t, config.HealthConfig{
		RepoPath:     repoDir,
		MaxHeadAge:   30 * 24 * time.Hour,
		LookbackDays: 30,
	})

	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.CheckOK, checkByName(t, report, "repository").Status)
	activity := checkByName(t, report, "commit-activity")
	assert.Equal(t, schemas.CheckOK, activity.Status)
	assert.Contains(t, activity.Detail, "1 commits")
	assert.Equal(t, schemas.CheckOK, checkByName(t, report, "store-writable").Status)
}

func TestRunStaleHead(t *testing.T) {
	repoDir := initRepo(t, time.Now().Add(-90*24*time.Hour))
	checker, _ := newChecker(t, config.HealthConfig{
		RepoPath:   repoDir,
		MaxHeadAge: 30 * 24 * time.Hour,
	})

	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	repo := checkByName(t, report, "repository")
	assert.Equal(t, schemas.CheckWarn, repo.Status)
	assert.Contains(t, repo.Detail, "old")
}

func TestRunDirtyWorktree(t *testing.T) {
	repoDir := initRepo(t, time.Now().Add(-time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "dirty.txt"), []byte("x"), 0o644))

	checker, _ := newChecker(t, config.HealthConfig{
		RepoPath:   repoDir,
		MaxHeadAge: 30 * 24 * time.Hour,
	})
	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	repo := checkByName(t, report, "repository")
	assert.Equal(t, schemas.CheckWarn, repo.Status)
	assert.Contains(t, repo.Detail, "uncommitted")
}

func TestRunMissingRepository(t *testing.T) {
	checker, _ := newChecker(t, config.HealthConfig{RepoPath: t.TempDir()})

	report, err := checker.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, schemas.CheckFail, checkByName(t, report, "repository").Status)
	assert.Equal(t, schemas.CheckFail, report.Overall)
}

func TestRunBaselineFreshness(t *testing.T) {
	repoDir := initRepo(t, time.Now().Add(-time.Hour))
	cfg := config.HealthConfig{RepoPath: repoDir, MaxBaselineAge: 30 * 24 * time.Hour}
	checker, st := newChecker(t, cfg)

	t.Run("no baselines warns", func(t *testing.T) {
		report, err := checker.Run(context.Background())
		require.NoError(t, err)
		fresh := checkByName(t, report, "baseline-freshness")
		assert.Equal(t, schemas.CheckWarn, fresh.Status)
		assert.Contains(t, fresh.Detail, "no baselines")
	})

	t.Run("fresh baseline passes", func(t *testing.T) {
		snap := &schemas.MetricSnapshot{
			ID:        "b-1",
			Name:      "api-bench",
			Timestamp: time.Now().UTC(),
			Metrics:   map[string]float64{"response_time": 100},
		}
		_, err := st.SaveBaseline(context.Background(), snap, "main")
		require.NoError(t, err)

		report, err := checker.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, schemas.CheckOK, checkByName(t, report, "baseline-freshness").Status)
	})

	t.Run("stale baseline warns", func(t *testing.T) {
		old := time.Now().Add(-60 * 24 * time.Hour)
		baseline := filepath.Join(st.Root(), "baselines", "main.json")
		require.NoError(t, os.Chtimes(baseline, old, old))

		report, err := checker.Run(context.Background())
		require.NoError(t, err)
		fresh := checkByName(t, report, "baseline-freshness")
		assert.Equal(t, schemas.CheckWarn, fresh.Status)
		assert.Contains(t, fresh.Detail, "main.json")
	})
}

func TestRunCancelledContext(t *testing.T) {
	checker, _ := newChecker(t, config.HealthConfig{RepoPath: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := checker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
