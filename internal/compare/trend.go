// File: internal/compare/trend.go
package compare

import (
	"errors"
	"math"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// ErrInsufficientData is reported when fewer than two history points are
// available for a metric. Callers treat it as "no trend available", not as a
// pipeline failure.
var ErrInsufficientData = errors.New("insufficient data for trend analysis")

// DefaultTrendWindow is the number of trailing points considered.
const DefaultTrendWindow = 3

// Trend classifies the movement of a metric over the trailing window of its
// ordered history (oldest first). The dead-band epsilon is an explicit input:
// changes with magnitude below it classify as stable.
func Trend(metric string, values []float64, window int, epsilon float64, direction schemas.Direction) (schemas.TrendResult, error) {
	if len(values) < 2 {
		return schemas.TrendResult{}, ErrInsufficientData
	}
	if window < 2 {
		window = DefaultTrendWindow
	}
	if window > len(values) {
		window = len(values)
	}

	tail := values[len(values)-window:]
	first, last := tail[0], tail[len(tail)-1]
	change := last - first

	result := schemas.TrendResult{
		Metric: metric,
		First:  first,
		Last:   last,
		Change: change,
		Window: window,
	}

	if math.Abs(change) < epsilon {
		result.Direction = schemas.TrendStable
		return result, nil
	}

	up := change > 0
	if direction == schemas.DirectionHigherBetter {
		if up {
			result.Direction = schemas.TrendImproving
		} else {
			result.Direction = schemas.TrendDegrading
		}
		return result, nil
	}
	if up {
		result.Direction = schemas.TrendDegrading
	} else {
		result.Direction = schemas.TrendImproving
	}
	return result, nil
}

// TrendFromHistory extracts one metric's series from snapshot history
// (most-recent-first, as the store lists it) and analyzes its trend.
// Snapshots lacking the metric are skipped.
func (c *Comparator) TrendFromHistory(metric string, history []*schemas.MetricSnapshot, window int, epsilon float64) (schemas.TrendResult, error) {
	// Reverse into chronological order, keeping only points that carry the metric.
	var values []float64
	for i := len(history) - 1; i >= 0; i-- {
		if v, ok := history[i].Metrics[metric]; ok {
			values = append(values, v)
		}
	}
	_, direction := c.resolve(metric)
	return Trend(metric, values, window, epsilon, direction)
}
