// File: cmd/scan.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/reporting"
	"github.com/xkilldash9x/pipewatch/internal/security"
)

type scanOptions struct {
	dir         string
	minScore    int
	save        bool
	buildID     string
	concurrency int
}

// effectiveScanConfig applies the per-invocation concurrency override to the
// loaded scan configuration. Zero means no override.
func effectiveScanConfig(base config.ScanConfig, concurrency int) config.ScanConfig {
	if concurrency > 0 {
		base.Concurrency = concurrency
	}
	return base
}

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scans project dependencies for vulnerabilities and computes a security score",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("scan.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := scanOptions{
				dir:      ".",
				minScore: viper.GetInt("min-score"),
				save:     viper.GetBool("save"),
				buildID:  viper.GetString("build-id"),
				// appCfg was unmarshaled before this command's flags were
				// bound, so the resolved value comes from viper here.
				concurrency: viper.GetInt("scan.concurrency"),
			}
			if len(args) == 1 {
				opts.dir = args[0]
			}
			return runScan(cmd.Context(), appCfg, opts, cmd.OutOrStdout())
		},
	}

	scanCmd.Flags().Int("min-score", 0, "Exit non-zero when the security score falls below this value")
	scanCmd.Flags().Bool("save", true, "Persist the scan snapshot to the store")
	scanCmd.Flags().String("build-id", "", "Build identifier for the snapshot (defaults to GITHUB_RUN_ID or a UUID)")
	scanCmd.Flags().IntP("concurrency", "j", 0, "Concurrent auditors. (Overrides config/env)")
	return scanCmd
}

func runScan(ctx context.Context, cfg *config.Config, opts scanOptions, out io.Writer) error {
	logger := observability.GetLogger()

	buildID := opts.buildID
	if buildID == "" {
		if buildID = os.Getenv("GITHUB_RUN_ID"); buildID == "" {
			buildID = uuid.NewString()
		}
	}

	scanner := security.NewScanner(effectiveScanConfig(cfg.Scan, opts.concurrency), security.ExecRunner{}, logger)
	snap, scanErr := scanner.Scan(ctx, opts.dir, buildID)
	if snap == nil {
		return scanErr
	}
	if scanErr != nil {
		logger.Warn("Some auditors failed, score reflects partial results", zap.Error(scanErr))
	}

	score := security.NewScorer(cfg.Scoring).ScoreSnapshot(snap)
	logger.Info("Scan complete",
		zap.String("build_id", buildID),
		zap.Int("dependencies", len(snap.Dependencies)),
		zap.Int("score", score.Score))

	if opts.save {
		fs, err := openFSStore(cfg, logger)
		if err != nil {
			return err
		}
		if _, err := fs.SaveScan(ctx, snap); err != nil {
			return fmt.Errorf("failed to persist scan snapshot: %w", err)
		}
	}

	markdown := reporting.RenderSecurity(score)
	fmt.Fprintln(out, markdown)
	if _, err := reporting.AppendStepSummary(markdown); err != nil {
		logger.Warn("Failed to write step summary", zap.Error(err))
	}

	if opts.minScore > 0 && score.Score < opts.minScore {
		return fmt.Errorf("security score %d is below the required minimum %d", score.Score, opts.minScore)
	}
	return nil
}
