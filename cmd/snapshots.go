// File: cmd/snapshots.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/observability"
)

// newSnapshotsCmd creates the `snapshots` command group.
func newSnapshotsCmd() *cobra.Command {
	snapshotsCmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Inspects and maintains the snapshot history",
	}
	snapshotsCmd.AddCommand(newSnapshotsListCmd(), newSnapshotsPruneCmd(), newSnapshotsArchiveCmd())
	return snapshotsCmd
}

func newSnapshotsListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists stored snapshots, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, _ := cmd.Flags().GetString("series")
			limit, _ := cmd.Flags().GetInt("limit")
			return runSnapshotsList(cmd.Context(), appCfg, series, limit, cmd.OutOrStdout())
		},
	}
	listCmd.Flags().String("series", "", "Only list snapshots from this series")
	listCmd.Flags().Int("limit", 20, "Maximum number of snapshots to list (0 for all)")
	return listCmd
}

func runSnapshotsList(ctx context.Context, cfg *config.Config, series string, limit int, out io.Writer) error {
	st, cleanup, err := openMetricStore(ctx, cfg, observability.GetLogger())
	if err != nil {
		return err
	}
	defer cleanup()

	history, err := st.ListHistory(ctx, series, limit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(out, "No snapshots stored yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSERIES\tCAPTURED\tMETRICS")
	for _, snap := range history {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			snap.ID, snap.Name, snap.Timestamp.Format("2006-01-02 15:04:05"), len(snap.Metrics))
	}
	return w.Flush()
}

func newSnapshotsPruneCmd() *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Removes old snapshots beyond the retention count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, _ := cmd.Flags().GetString("series")
			keep, _ := cmd.Flags().GetInt("keep")
			return runSnapshotsPrune(cmd.Context(), appCfg, series, keep, cmd.OutOrStdout())
		},
	}
	pruneCmd.Flags().String("series", "", "Only prune snapshots from this series")
	pruneCmd.Flags().Int("keep", 0, "Snapshots to retain (defaults to store.retain_history)")
	return pruneCmd
}

func runSnapshotsPrune(ctx context.Context, cfg *config.Config, series string, keep int, out io.Writer) error {
	logger := observability.GetLogger()
	fs, err := openFSStore(cfg, logger)
	if err != nil {
		return err
	}

	if keep <= 0 {
		keep = cfg.Store.RetainHistory
	}
	removed, err := fs.Prune(ctx, series, keep)
	if err != nil {
		return err
	}

	logger.Info("History pruned", zap.Int("removed", removed), zap.Int("kept", keep))
	fmt.Fprintf(out, "Pruned %d snapshot(s), keeping the %d most recent.\n", removed, keep)
	return nil
}

func newSnapshotsArchiveCmd() *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Compresses snapshots older than the given age into the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			return runSnapshotsArchive(cmd.Context(), appCfg, olderThan, cmd.OutOrStdout())
		},
	}
	archiveCmd.Flags().Duration("older-than", 30*24*time.Hour, "Archive snapshots older than this duration")
	return archiveCmd
}

func runSnapshotsArchive(ctx context.Context, cfg *config.Config, olderThan time.Duration, out io.Writer) error {
	logger := observability.GetLogger()
	fs, err := openFSStore(cfg, logger)
	if err != nil {
		return err
	}

	archived, err := fs.Archive(ctx, olderThan)
	if err != nil {
		return err
	}

	logger.Info("History archived", zap.Int("archived", archived), zap.Duration("older_than", olderThan))
	fmt.Fprintf(out, "Archived %d snapshot(s) older than %s.\n", archived, olderThan)
	return nil
}
