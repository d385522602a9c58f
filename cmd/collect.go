// File: cmd/collect.go
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
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/perf"
)

// newCollectCmd creates and configures the `collect` command.
func newCollectCmd() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect <results.json>",
		Short: "Collects a benchmark results file into the snapshot store",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			return runCollect(cmd.Context(), appCfg, args[0], name, cmd.OutOrStdout())
		},
	}

	collectCmd.Flags().StringP("name", "n", "benchmark", "Logical name for the snapshot series")
	return collectCmd
}

func runCollect(ctx context.Context, cfg *config.Config, resultsPath, name string, out io.Writer) error {
	logger := observability.GetLogger()

	collector := perf.NewCollector(logger)
	snap, err := collector.Collect(resultsPath, name)
	if err != nil {
		return err
	}

	st, cleanup, err := openMetricStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := st.Save(ctx, snap)
	if err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	logger.Info("Snapshot stored", zap.String("id", snap.ID), zap.String("path", path))
	fmt.Fprintf(out, "Collected snapshot %s (%d metrics) -> %s\n", snap.ID, len(snap.Metrics), path)
	return nil
}

// loadCurrentSnapshot resolves the snapshot a gate runs against: the given
// results file when present, otherwise the most recent stored snapshot.
func loadCurrentSnapshot(ctx context.Context, st schemas.MetricStore, resultsPath, name string, logger *zap.Logger) (*schemas.MetricSnapshot, error) {
	if resultsPath != "" {
		return perf.NewCollector(logger).Collect(resultsPath, name)
	}

	history, err := st.ListHistory(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no stored snapshots named %q; run collect first or pass a results file", name)
	}
	return history[0], nil
}
