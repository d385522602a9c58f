// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/internal/compare"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/reporting"
	"github.com/xkilldash9x/pipewatch/internal/security"
)

type reportOptions struct {
	name     string
	baseline string
	pr       int
	sha      string
}

// newReportCmd creates and configures the `report` command.
func newReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Assembles the full pipeline report and publishes it to GitHub",
		Long: `Builds a combined report from the latest stored snapshot, the configured
baseline, and the latest security scan, then appends it to the GitHub
Actions step summary. With --pr it also upserts a sticky pull request
comment; with --sha it sets a commit status carrying the gate verdict.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := reportOptions{
				name:     viper.GetString("name"),
				baseline: viper.GetString("baseline"),
				pr:       viper.GetInt("pr"),
				sha:      viper.GetString("sha"),
			}
			return runReport(cmd.Context(), appCfg, opts, cmd.OutOrStdout())
		},
	}

	reportCmd.Flags().StringP("name", "n", "benchmark", "Logical name of the snapshot series")
	reportCmd.Flags().StringP("baseline", "b", "main", "Baseline name to compare against")
	reportCmd.Flags().Int("pr", 0, "Pull request number to post the report on")
	reportCmd.Flags().String("sha", "", "Commit SHA to attach a status to (defaults to GITHUB_SHA when --pr is set)")
	return reportCmd
}

func runReport(ctx context.Context, cfg *config.Config, opts reportOptions, out io.Writer) error {
	logger := observability.GetLogger()

	st, cleanup, err := openMetricStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	current, err := loadCurrentSnapshot(ctx, st, "", opts.name, logger)
	if err != nil {
		return err
	}
	baseline, _, err := st.LoadBaseline(ctx, opts.baseline)
	if err != nil {
		return err
	}

	comparator := compare.New(cfg.Thresholds)
	comparison := comparator.Compare(current, baseline)
	comparison.BaselineName = opts.baseline

	report := &reporting.Report{
		Comparison: comparison,
		RunURL:     reporting.WorkflowRunURL(),
	}
	report.Trends, report.NoTrendFor = collectTrends(ctx, st, comparator, current, cfg, logger)

	// The security section is best effort: a report without a prior scan is
	// still a valid report.
	if fs, err := openFSStore(cfg, logger); err == nil {
		if scan, found, err := fs.LoadScanBaseline(ctx, opts.baseline); err == nil && found {
			score := security.NewScorer(cfg.Scoring).ScoreSnapshot(scan)
			report.Score = &score
		}
	}

	markdown := report.Render()
	fmt.Fprintln(out, markdown)
	if _, err := reporting.AppendStepSummary(markdown); err != nil {
		logger.Warn("Failed to write step summary", zap.Error(err))
	}

	if opts.pr == 0 && opts.sha == "" {
		return nil
	}

	repository := os.Getenv("GITHUB_REPOSITORY")
	if repository == "" {
		return fmt.Errorf("GITHUB_REPOSITORY is not set; cannot publish to GitHub")
	}
	publisher, err := reporting.NewPublisher(ctx, cfg.GitHub, repository, logger)
	if err != nil {
		return err
	}

	if opts.pr > 0 {
		if err := publisher.UpsertPRComment(ctx, opts.pr, report.RenderSticky()); err != nil {
			return err
		}
	}

	sha := opts.sha
	if sha == "" {
		sha = os.Getenv("GITHUB_SHA")
	}
	if sha != "" {
		if err := publisher.PublishCommitStatus(ctx, sha, comparison.Overall, report.RunURL); err != nil {
			return err
		}
	}
	return nil
}
