// File: cmd/health.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/health"
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/reporting"
)

// newHealthCmd creates and configures the `health` command.
func newHealthCmd() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Runs maintenance health checks over the repository and snapshot store",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context(), appCfg, viper.GetBool("strict"), cmd.OutOrStdout())
		},
	}
	healthCmd.Flags().Bool("strict", false, "Exit non-zero when any check reports fail")
	return healthCmd
}

func runHealth(ctx context.Context, cfg *config.Config, strict bool, out io.Writer) error {
	logger := observability.GetLogger()

	fs, err := openFSStore(cfg, logger)
	if err != nil {
		return err
	}

	checker := health.NewChecker(cfg.Health, fs, logger)
	report, err := checker.Run(ctx)
	if err != nil {
		return err
	}

	markdown := reporting.RenderHealth(report)
	fmt.Fprintln(out, markdown)
	if _, err := reporting.AppendStepSummary(markdown); err != nil {
		logger.Warn("Failed to write step summary", zap.Error(err))
	}

	if report.Overall == schemas.CheckFail {
		if strict {
			return fmt.Errorf("health check failed: one or more checks reported fail")
		}
		logger.Warn("Health checks reported failures; exiting zero without --strict")
	}
	return nil
}
