// Package compare implements the performance comparison engine: percentage
// deltas between a current snapshot and a named baseline, threshold
// classification, and trend analysis over snapshot history.
//
// Everything here is pure computation over immutable inputs. Missing data is
// a normal, handled case and never raises an error; only malformed input
// shapes do.
package compare

import (
	"sort"
	"strings"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
)

// categoryOrder fixes the evaluation order of threshold categories so that
// overlapping patterns resolve deterministically.
var categoryOrder = []string{"time", "memory", "throughput", "cpu"}

// Comparator classifies metric deltas against configured thresholds. The
// threshold table is injected at construction; the comparator holds no
// mutable state.
type Comparator struct {
	thresholds config.ThresholdConfig
}

// New creates a Comparator from an explicit threshold configuration.
func New(thresholds config.ThresholdConfig) *Comparator {
	return &Comparator{thresholds: thresholds}
}

// resolve finds the threshold and direction for a metric name using
// case-insensitive substring matching against the category patterns, falling
// back to the configured defaults.
func (c *Comparator) resolve(metric string) (float64, schemas.Direction) {
	lower := strings.ToLower(metric)
	for _, name := range categoryOrder {
		cat, ok := c.thresholds.Categories[name]
		if !ok {
			continue
		}
		for _, pattern := range cat.Patterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				return cat.Threshold, schemas.Direction(cat.Direction)
			}
		}
	}
	// Categories outside the fixed order still participate, after it.
	var extras []string
	for name := range c.thresholds.Categories {
		if !isOrderedCategory(name) {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		cat := c.thresholds.Categories[name]
		for _, pattern := range cat.Patterns {
			if strings.Contains(lower, strings.ToLower(pattern)) {
				return cat.Threshold, schemas.Direction(cat.Direction)
			}
		}
	}

	dir := schemas.Direction(c.thresholds.DefaultDirection)
	if dir == "" {
		dir = schemas.DirectionLowerBetter
	}
	return c.thresholds.DefaultThreshold, dir
}

func isOrderedCategory(name string) bool {
	for _, n := range categoryOrder {
		if n == name {
			return true
		}
	}
	return false
}

// Compare computes per-metric deltas of current against baseline and derives
// the overall verdict (worst across all metrics).
//
// Metrics absent from the baseline are reported with no baseline value and
// status within: absence is not a regression. A baseline value of zero makes
// the percentage undefined; such metrics also classify as within, since a
// regression cannot be assessed against a zero reference.
func (c *Comparator) Compare(current, baseline *schemas.MetricSnapshot) *schemas.Comparison {
	result := &schemas.Comparison{
		SnapshotID: current.ID,
		Timestamp:  current.Timestamp,
		Overall:    schemas.StatusWithin,
	}
	if baseline != nil {
		result.BaselineID = baseline.ID
		result.BaselineName = baseline.Name
	}

	names := make([]string, 0, len(current.Metrics))
	for name := range current.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := current.Metrics[name]
		threshold, direction := c.resolve(name)

		delta := schemas.MetricDelta{
			Metric:    name,
			Current:   value,
			Threshold: threshold,
			Direction: direction,
			Status:    schemas.StatusWithin,
		}

		var baseValue float64
		var hasBase bool
		if baseline != nil {
			baseValue, hasBase = baseline.Metrics[name]
		}

		if hasBase {
			delta.Baseline = baseValue
			delta.HasBaseline = true
			delta.ChangeAbsolute = value - baseValue
			if baseValue != 0 {
				delta.ChangePercent = (value - baseValue) / baseValue * 100
				delta.PercentDefined = true
				delta.Status = Classify(delta.ChangePercent, threshold,
					c.thresholds.WarningMultiplier, direction)
			}
		}

		result.Deltas = append(result.Deltas, delta)
		result.Overall = result.Overall.Worse(delta.Status)
	}
	return result
}
