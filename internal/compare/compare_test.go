// File: internal/compare/compare_test.go
package compare_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/compare"
	"github.com/xkilldash9x/pipewatch/internal/config"
)

const floatTolerance = 1e-9

func defaultComparator() *compare.Comparator {
	return compare.New(config.NewDefaultConfig().Thresholds)
}

func snapshotWith(metrics map[string]float64) *schemas.MetricSnapshot {
	return &schemas.MetricSnapshot{
		ID:        "current-1",
		Name:      "api-bench",
		Timestamp: time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC),
		Metrics:   metrics,
	}
}

func baselineWith(metrics map[string]float64) *schemas.MetricSnapshot {
	return &schemas.MetricSnapshot{
		ID:        "baseline-1",
		Name:      "main",
		Timestamp: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Metrics:   metrics,
	}
}

func deltaFor(t *testing.T, c *schemas.Comparison, metric string) schemas.MetricDelta {
	t.Helper()
	for _, d := range c.Deltas {
		if d.Metric == metric {
			return d
		}
	}
	t.Fatalf("no delta for metric %q", metric)
	return schemas.MetricDelta{}
}

func TestChangePercentExact(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	result := c.Compare(
		snapshotWith(map[string]float64{"response_time": 150}),
		baselineWith(map[string]float64{"response_time": 140}),
	)

	d := deltaFor(t, result, "response_time")
	require.True(t, d.PercentDefined)
	assert.InDelta(t, (150.0-140.0)/140.0*100, d.ChangePercent, floatTolerance)
	assert.InDelta(t, 10.0, d.ChangeAbsolute, floatTolerance)
}

// Threshold scenarios: the same +7.14% latency regression lands in a
// different tier depending on the configured threshold.
func TestThresholdScenarios(t *testing.T) {
	t.Parallel()

	mkComparator := func(timeThreshold float64) *compare.Comparator {
		cfg := config.NewDefaultConfig().Thresholds
		cat := cfg.Categories["time"]
		cat.Threshold = timeThreshold
		cfg.Categories["time"] = cat
		return compare.New(cfg)
	}

	t.Run("within at threshold 10", func(t *testing.T) {
		result := mkComparator(10).Compare(
			snapshotWith(map[string]float64{"response_time": 150}),
			baselineWith(map[string]float64{"response_time": 140}),
		)
		d := deltaFor(t, result, "response_time")
		assert.InDelta(t, 7.142857142857143, d.ChangePercent, 1e-6)
		assert.Equal(t, schemas.StatusWithin, d.Status)
		assert.Equal(t, schemas.StatusWithin, result.Overall)
	})

	t.Run("warning at threshold 5", func(t *testing.T) {
		result := mkComparator(5).Compare(
			snapshotWith(map[string]float64{"response_time": 150}),
			baselineWith(map[string]float64{"response_time": 140}),
		)
		d := deltaFor(t, result, "response_time")
		// 7.14 is above 5 but inside 2x5.
		assert.Equal(t, schemas.StatusWarning, d.Status)
		assert.Equal(t, schemas.StatusWarning, result.Overall)
	})

	t.Run("critical beyond twice the threshold", func(t *testing.T) {
		result := mkComparator(5).Compare(
			snapshotWith(map[string]float64{"response_time": 200}),
			baselineWith(map[string]float64{"response_time": 140}),
		)
		d := deltaFor(t, result, "response_time")
		assert.InDelta(t, 42.857142857142854, d.ChangePercent, 1e-6)
		assert.Equal(t, schemas.StatusCritical, d.Status)
		assert.Equal(t, schemas.StatusCritical, result.Overall)
	})
}

func TestZeroBaselineNeverDividesOrRegresses(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	result := c.Compare(
		snapshotWith(map[string]float64{"response_time": 150}),
		baselineWith(map[string]float64{"response_time": 0}),
	)

	d := deltaFor(t, result, "response_time")
	assert.True(t, d.HasBaseline)
	assert.False(t, d.PercentDefined, "percent change is undefined against a zero baseline")
	assert.Equal(t, schemas.StatusWithin, d.Status)
	assert.False(t, math.IsInf(d.ChangePercent, 0))
	assert.False(t, math.IsNaN(d.ChangePercent))
}

func TestMetricMissingFromBaseline(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	result := c.Compare(
		snapshotWith(map[string]float64{"new_metric_ms": 42}),
		baselineWith(map[string]float64{"response_time": 140}),
	)

	d := deltaFor(t, result, "new_metric_ms")
	assert.False(t, d.HasBaseline, "absence is not a regression")
	assert.Equal(t, schemas.StatusWithin, d.Status)
	assert.Equal(t, schemas.StatusWithin, result.Overall)
}

func TestNilBaselineSnapshot(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	result := c.Compare(snapshotWith(map[string]float64{"response_time": 150}), nil)
	require.Len(t, result.Deltas, 1)
	assert.Equal(t, schemas.StatusWithin, result.Overall)
}

func TestDirectionAwareness(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	t.Run("throughput drop is a regression", func(t *testing.T) {
		result := c.Compare(
			snapshotWith(map[string]float64{"throughput_rps": 800}),
			baselineWith(map[string]float64{"throughput_rps": 1000}),
		)
		d := deltaFor(t, result, "throughput_rps")
		assert.Equal(t, schemas.DirectionHigherBetter, d.Direction)
		assert.InDelta(t, -20.0, d.ChangePercent, floatTolerance)
		assert.Equal(t, schemas.StatusWarning, d.Status) // 20% > 10% threshold, <= 2x
	})

	t.Run("throughput gain is within", func(t *testing.T) {
		result := c.Compare(
			snapshotWith(map[string]float64{"throughput_rps": 5000}),
			baselineWith(map[string]float64{"throughput_rps": 1000}),
		)
		d := deltaFor(t, result, "throughput_rps")
		assert.Equal(t, schemas.StatusWithin, d.Status)
	})

	t.Run("latency drop is within", func(t *testing.T) {
		result := c.Compare(
			snapshotWith(map[string]float64{"p99_latency_ms": 50}),
			baselineWith(map[string]float64{"p99_latency_ms": 200}),
		)
		d := deltaFor(t, result, "p99_latency_ms")
		assert.Equal(t, schemas.DirectionLowerBetter, d.Direction)
		assert.Equal(t, schemas.StatusWithin, d.Status)
	})
}

func TestCategoryResolution(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	cases := []struct {
		metric        string
		wantThreshold float64
		wantDirection schemas.Direction
	}{
		{"response_time_ms", 10, schemas.DirectionLowerBetter},
		{"P99_LATENCY", 10, schemas.DirectionLowerBetter},
		{"memory_usage_mb", 15, schemas.DirectionLowerBetter},
		{"heap_bytes", 15, schemas.DirectionLowerBetter},
		{"ops_per_sec", 10, schemas.DirectionHigherBetter},
		{"cpu_percent", 20, schemas.DirectionLowerBetter},
		{"unmatched_gauge", 10, schemas.DirectionLowerBetter}, // defaults
	}

	for _, tc := range cases {
		result := c.Compare(
			snapshotWith(map[string]float64{tc.metric: 1}),
			baselineWith(map[string]float64{tc.metric: 1}),
		)
		d := deltaFor(t, result, tc.metric)
		assert.Equal(t, tc.wantThreshold, d.Threshold, "threshold for %s", tc.metric)
		assert.Equal(t, tc.wantDirection, d.Direction, "direction for %s", tc.metric)
	}
}

func TestOverallIsWorstOf(t *testing.T) {
	t.Parallel()
	c := defaultComparator()

	result := c.Compare(
		snapshotWith(map[string]float64{
			"response_time": 100, // unchanged: within
			"memory_mb":     118, // +18% vs 15% threshold: warning
			"cpu_percent":   95,  // +90% vs 20% threshold: critical
		}),
		baselineWith(map[string]float64{
			"response_time": 100,
			"memory_mb":     100,
			"cpu_percent":   50,
		}),
	)

	assert.Equal(t, schemas.StatusWithin, deltaFor(t, result, "response_time").Status)
	assert.Equal(t, schemas.StatusWarning, deltaFor(t, result, "memory_mb").Status)
	assert.Equal(t, schemas.StatusCritical, deltaFor(t, result, "cpu_percent").Status)
	assert.Equal(t, schemas.StatusCritical, result.Overall)
}

// TestClassifyTotality sweeps a grid of inputs and asserts Classify always
// lands on exactly one known tier.
func TestClassifyTotality(t *testing.T) {
	t.Parallel()
	known := map[schemas.Status]bool{
		schemas.StatusWithin:   true,
		schemas.StatusWarning:  true,
		schemas.StatusCritical: true,
	}

	changes := []float64{-1000, -42.5, -10, -0.001, 0, 0.001, 5, 9.999, 10, 10.001, 19.999, 20, 20.001, 1000}
	thresholds := []float64{0.5, 5, 10, 50}
	for _, dir := range []schemas.Direction{schemas.DirectionLowerBetter, schemas.DirectionHigherBetter} {
		for _, th := range thresholds {
			for _, ch := range changes {
				status := compare.Classify(ch, th, 2.0, dir)
				assert.True(t, known[status],
					"classify(%v, %v, %s) returned unknown status %q", ch, th, dir, status)
			}
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	t.Parallel()

	// Exactly at the threshold stays within; exactly at the multiplier
	// boundary stays warning.
	assert.Equal(t, schemas.StatusWithin,
		compare.Classify(10, 10, 2, schemas.DirectionLowerBetter))
	assert.Equal(t, schemas.StatusWarning,
		compare.Classify(20, 10, 2, schemas.DirectionLowerBetter))
	assert.Equal(t, schemas.StatusCritical,
		compare.Classify(20.000001, 10, 2, schemas.DirectionLowerBetter))

	// Mirror logic for higher-better metrics.
	assert.Equal(t, schemas.StatusWithin,
		compare.Classify(-10, 10, 2, schemas.DirectionHigherBetter))
	assert.Equal(t, schemas.StatusWarning,
		compare.Classify(-15, 10, 2, schemas.DirectionHigherBetter))
	assert.Equal(t, schemas.StatusCritical,
		compare.Classify(-25, 10, 2, schemas.DirectionHigherBetter))

	// A custom multiplier moves the escalation boundary.
	assert.Equal(t, schemas.StatusWarning,
		compare.Classify(29, 10, 3, schemas.DirectionLowerBetter))
	assert.Equal(t, schemas.StatusCritical,
		compare.Classify(31, 10, 3, schemas.DirectionLowerBetter))
}
