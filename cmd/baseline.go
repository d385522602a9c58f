// File: cmd/baseline.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/store"
)

// newBaselineCmd creates the `baseline` command group.
func newBaselineCmd() *cobra.Command {
	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manages named performance baselines",
	}
	baselineCmd.AddCommand(newBaselinePromoteCmd(), newBaselineListCmd())
	return baselineCmd
}

func newBaselinePromoteCmd() *cobra.Command {
	promoteCmd := &cobra.Command{
		Use:   "promote [snapshot-id]",
		Short: "Promotes a snapshot to a named baseline (latest when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			name, _ := cmd.Flags().GetString("name")
			series, _ := cmd.Flags().GetString("series")
			return runBaselinePromote(cmd.Context(), appCfg, id, name, series, cmd.OutOrStdout())
		},
	}
	promoteCmd.Flags().StringP("name", "n", "main", "Baseline name to promote into")
	promoteCmd.Flags().String("series", "benchmark", "Snapshot series to promote from")
	return promoteCmd
}

func runBaselinePromote(ctx context.Context, cfg *config.Config, snapshotID, name, series string, out io.Writer) error {
	logger := observability.GetLogger()

	st, cleanup, err := openMetricStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	history, err := st.ListHistory(ctx, series, 0)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no snapshots in series %q to promote", series)
	}

	target := history[0]
	if snapshotID != "" {
		target = nil
		for _, snap := range history {
			if snap.ID == snapshotID {
				target = snap
				break
			}
		}
		if target == nil {
			return fmt.Errorf("snapshot %q not found in series %q", snapshotID, series)
		}
	}

	path, err := st.SaveBaseline(ctx, target, name)
	if err != nil {
		return fmt.Errorf("failed to promote baseline: %w", err)
	}

	logger.Info("Baseline promoted",
		zap.String("baseline", name), zap.String("snapshot", target.ID), zap.String("path", path))
	fmt.Fprintf(out, "Promoted snapshot %s to baseline %q\n", target.ID, name)
	return nil
}

func newBaselineListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists promoted baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaselineList(appCfg, cmd.OutOrStdout())
		},
	}
}

func runBaselineList(cfg *config.Config, out io.Writer) error {
	fs, err := openFSStore(cfg, observability.GetLogger())
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(filepath.Join(fs.Root(), "baselines"))
	if err != nil {
		return fmt.Errorf("failed to read baselines: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No baselines promoted yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSNAPSHOT\tCAPTURED\tMETRICS")
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		snap, err := store.ReadSnapshotFile(filepath.Join(fs.Root(), "baselines", entry.Name()))
		if err != nil {
			fmt.Fprintf(w, "%s\t(unreadable)\t\t\n", name)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			name, snap.ID, snap.Timestamp.Format("2006-01-02 15:04"), len(snap.Metrics))
	}
	return w.Flush()
}
