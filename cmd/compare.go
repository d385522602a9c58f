// File: cmd/compare.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/compare"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/observability"
	"github.com/xkilldash9x/pipewatch/internal/reporting"
)

// errGateFailed marks a deliberate non-zero exit from a gate decision, as
// opposed to an operational failure.
var errGateFailed = errors.New("comparison gate failed")

type compareOptions struct {
	resultsPath string
	name        string
	baseline    string
	failOn      string
	trends      bool
}

// newCompareCmd creates and configures the `compare` command.
func newCompareCmd() *cobra.Command {
	compareCmd := &cobra.Command{
		Use:   "compare [results.json]",
		Short: "Compares a benchmark snapshot against a named baseline",
		Long: `Compares the given results file (or the most recent stored snapshot)
against a named baseline and classifies each metric as within, warning,
or critical. The verdict is printed as Markdown and, inside GitHub
Actions, appended to the step summary.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := compareOptions{
				name:     viper.GetString("name"),
				baseline: viper.GetString("baseline"),
				failOn:   viper.GetString("fail-on"),
				trends:   viper.GetBool("trends"),
			}
			if len(args) == 1 {
				opts.resultsPath = args[0]
			}
			return runCompare(cmd.Context(), appCfg, opts, cmd.OutOrStdout())
		},
	}

	compareCmd.Flags().StringP("name", "n", "benchmark", "Logical name of the snapshot series")
	compareCmd.Flags().StringP("baseline", "b", "main", "Baseline name to compare against")
	compareCmd.Flags().String("fail-on", "critical", "Exit non-zero at this tier: critical, warning, or none")
	compareCmd.Flags().Bool("trends", true, "Include trend analysis from stored history")
	return compareCmd
}

func runCompare(ctx context.Context, cfg *config.Config, opts compareOptions, out io.Writer) error {
	logger := observability.GetLogger()

	switch opts.failOn {
	case "critical", "warning", "none":
	default:
		return fmt.Errorf("invalid --fail-on value %q, expected critical, warning, or none", opts.failOn)
	}

	st, cleanup, err := openMetricStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	current, err := loadCurrentSnapshot(ctx, st, opts.resultsPath, opts.name, logger)
	if err != nil {
		return err
	}

	baseline, found, err := st.LoadBaseline(ctx, opts.baseline)
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("Baseline not found, all metrics report as within",
			zap.String("baseline", opts.baseline))
	}

	comparator := compare.New(cfg.Thresholds)
	result := comparator.Compare(current, baseline)
	result.BaselineName = opts.baseline

	report := &reporting.Report{
		Comparison: result,
		RunURL:     reporting.WorkflowRunURL(),
	}
	if opts.trends {
		report.Trends, report.NoTrendFor = collectTrends(ctx, st, comparator, current, cfg, logger)
	}

	markdown := report.Render()
	fmt.Fprintln(out, markdown)
	if written, err := reporting.AppendStepSummary(markdown); err != nil {
		logger.Warn("Failed to write step summary", zap.Error(err))
	} else if written {
		logger.Debug("Appended report to step summary")
	}

	return gateVerdict(result.Overall, opts.failOn)
}

// collectTrends analyzes each current metric over stored history. Metrics
// with too little history are reported, not failed.
func collectTrends(ctx context.Context, st schemas.MetricStore, comparator *compare.Comparator, current *schemas.MetricSnapshot, cfg *config.Config, logger *zap.Logger) ([]schemas.TrendResult, []string) {
	history, err := st.ListHistory(ctx, current.Name, cfg.Trend.Window+1)
	if err != nil {
		logger.Warn("Trend analysis skipped, history unavailable", zap.Error(err))
		return nil, nil
	}

	var trends []schemas.TrendResult
	var insufficient []string
	for _, delta := range comparator.Compare(current, nil).Deltas {
		tr, err := comparator.TrendFromHistory(delta.Metric, history, cfg.Trend.Window, cfg.Trend.Epsilon)
		if err != nil {
			if errors.Is(err, compare.ErrInsufficientData) {
				insufficient = append(insufficient, delta.Metric)
				continue
			}
			logger.Warn("Trend analysis failed", zap.String("metric", delta.Metric), zap.Error(err))
			continue
		}
		trends = append(trends, tr)
	}
	return trends, insufficient
}

func gateVerdict(overall schemas.Status, failOn string) error {
	switch failOn {
	case "none":
		return nil
	case "warning":
		if overall != schemas.StatusWithin {
			return fmt.Errorf("%w: overall status is %s", errGateFailed, overall)
		}
	default: // critical
		if overall == schemas.StatusCritical {
			return fmt.Errorf("%w: overall status is %s", errGateFailed, overall)
		}
	}
	return nil
}
