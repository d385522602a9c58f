// Package health runs maintenance checks over the repository, the snapshot
// store, and the external audit tooling, producing a single pass/warn/fail
// report for CI dashboards.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/store"
)

// auditTools are the external scanners the scan command shells out to;
// their absence degrades scanning, so health surfaces it early.
var auditTools = []string{"npm", "pip-audit", "osv-scanner"}

type Checker struct {
	cfg config.HealthConfig
	st  *store.FS
	log *zap.Logger

	now func() time.Time
}

func NewChecker(cfg config.HealthConfig, st *store.FS, logger *zap.Logger) *Checker {
	return &Checker{
		cfg: cfg,
		st:  st,
		log: logger.Named("health"),
		now: time.Now,
	}
}

// Run executes every check. Individual check failures land in the report;
// Run itself only errors on context cancellation.
func (c *Checker) Run(ctx context.Context) (*schemas.HealthReport, error) {
	report := &schemas.HealthReport{Timestamp: c.now().UTC()}

	for _, check := range []func(context.Context) schemas.HealthCheck{
		c.checkRepository,
		c.checkCommitActivity,
		c.checkStoreWritable,
		c.checkBaselineFreshness,
		c.checkAuditTools,
	} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := check(ctx)
		report.Add(result)
		c.log.Debug("Health check finished",
			zap.String("check", result.Name),
			zap.String("status", string(result.Status)))
	}
	return report, nil
}

// checkRepository verifies the project repository is reachable and its HEAD
// is not stale.
func (c *Checker) checkRepository(context.Context) schemas.HealthCheck {
	check := schemas.HealthCheck{Name: "repository", Status: schemas.CheckOK}

	repo, err := git.PlainOpenWithOptions(c.cfg.RepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("cannot open repository at %s: %v", c.cfg.RepoPath, err)
		return check
	}

	head, err := repo.Head()
	if err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("cannot resolve HEAD: %v", err)
		return check
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("cannot read HEAD commit: %v", err)
		return check
	}

	age := c.now().Sub(commit.Committer.When)
	if c.cfg.MaxHeadAge > 0 && age > c.cfg.MaxHeadAge {
		check.Status = schemas.CheckWarn
		check.Detail = fmt.Sprintf("HEAD is %s old (limit %s)", age.Round(time.Hour), c.cfg.MaxHeadAge)
		return check
	}

	if wt, err := repo.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil && !status.IsClean() {
			check.Status = schemas.CheckWarn
			check.Detail = "worktree has uncommitted changes"
			return check
		}
	}

	check.Detail = fmt.Sprintf("HEAD %s, committed %s", head.Hash().String()[:8], commit.Committer.When.Format("2006-01-02"))
	return check
}

// checkCommitActivity counts commits inside the lookback window.
func (c *Checker) checkCommitActivity(context.Context) schemas.HealthCheck {
	check := schemas.HealthCheck{Name: "commit-activity", Status: schemas.CheckOK}
	if c.cfg.LookbackDays <= 0 {
		check.Detail = "lookback disabled"
		return check
	}

	repo, err := git.PlainOpenWithOptions(c.cfg.RepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("cannot open repository: %v", err)
		return check
	}

	since := c.now().AddDate(0, 0, -c.cfg.LookbackDays)
	iter, err := repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("cannot read log: %v", err)
		return check
	}
	defer iter.Close()

	count := 0
	_ = iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})

	check.Detail = fmt.Sprintf("%d commits in the last %d days", count, c.cfg.LookbackDays)
	if count == 0 {
		check.Status = schemas.CheckWarn
	}
	return check
}

// checkStoreWritable proves the store root accepts writes.
func (c *Checker) checkStoreWritable(context.Context) schemas.HealthCheck {
	check := schemas.HealthCheck{Name: "store-writable", Status: schemas.CheckOK}

	probe := filepath.Join(c.st.Root(), fmt.Sprintf(".health-%d", c.now().UnixNano()))
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		check.Status = schemas.CheckFail
		check.Detail = fmt.Sprintf("store root not writable: %v", err)
		return check
	}
	_ = os.Remove(probe)

	check.Detail = fmt.Sprintf("store root %s writable", c.st.Root())
	return check
}

// checkBaselineFreshness warns when promoted baselines have not been
// refreshed within the configured age.
func (c *Checker) checkBaselineFreshness(context.Context) schemas.HealthCheck {
	check := schemas.HealthCheck{Name: "baseline-freshness", Status: schemas.CheckOK}
	if c.cfg.MaxBaselineAge <= 0 {
		check.Detail = "freshness limit disabled"
		return check
	}

	entries, err := os.ReadDir(filepath.Join(c.st.Root(), "baselines"))
	if err != nil || len(entries) == 0 {
		check.Status = schemas.CheckWarn
		check.Detail = "no baselines promoted yet"
		return check
	}

	var stale []string
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if c.now().Sub(info.ModTime()) > c.cfg.MaxBaselineAge {
			stale = append(stale, entry.Name())
		}
	}
	if len(stale) > 0 {
		check.Status = schemas.CheckWarn
		check.Detail = fmt.Sprintf("%d baseline(s) older than %s: %v", len(stale), c.cfg.MaxBaselineAge, stale)
		return check
	}

	check.Detail = fmt.Sprintf("%d baseline(s) fresh", len(entries))
	return check
}

// checkAuditTools reports which external scanners are on PATH.
func (c *Checker) checkAuditTools(context.Context) schemas.HealthCheck {
	check := schemas.HealthCheck{Name: "audit-tools", Status: schemas.CheckOK}

	var missing []string
	for _, tool := range auditTools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) == len(auditTools) {
		check.Status = schemas.CheckFail
		check.Detail = "no audit tools found on PATH"
		return check
	}
	if len(missing) > 0 {
		check.Status = schemas.CheckWarn
		check.Detail = fmt.Sprintf("missing: %v", missing)
		return check
	}

	check.Detail = "all audit tools available"
	return check
}
