package schemas

import (
	"time"
)

// -- Performance Schemas --

// Status classifies the outcome of comparing one metric (or a whole
// snapshot) against its baseline.
type Status string

// Constants defining the comparison status tiers, ordered by severity.
const (
	StatusWithin   Status = "within"   // Change is inside the configured threshold.
	StatusWarning  Status = "warning"  // Change exceeds the threshold but not the critical boundary.
	StatusCritical Status = "critical" // Change exceeds the critical boundary.
)

// rank maps a status to its severity order. Unknown statuses rank lowest.
func (s Status) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusWarning:
		return 1
	case StatusWithin:
		return 0
	default:
		return -1
	}
}

// Worse returns the more severe of the two statuses. Ties resolve to s.
func (s Status) Worse(other Status) Status {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Direction declares which way a metric is supposed to move.
// Latency and memory are lower-better; throughput is higher-better.
type Direction string

const (
	DirectionLowerBetter  Direction = "lower_better"
	DirectionHigherBetter Direction = "higher_better"
)

// MetricSnapshot is a named, timestamped bag of scalar measurements.
// Snapshots are immutable once persisted; history accumulates and a
// subset are promoted to named baselines.
type MetricSnapshot struct {
	ID        string    `json:"id"`        // Unique identifier (UUID), assigned at collection time.
	Name      string    `json:"name"`      // Logical name of the benchmark suite (e.g. "api-bench").
	Timestamp time.Time `json:"timestamp"` // Collection time, UTC.

	// Metrics maps metric names to scalar values (e.g. "response_time_ms": 142.7).
	Metrics map[string]float64 `json:"metrics"`

	// Metadata carries environment context captured at collection time:
	// hostname, OS/arch, CPU count, git commit, CI run identifiers.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetricDelta is the comparison outcome for a single metric.
type MetricDelta struct {
	Metric  string  `json:"metric"`
	Current float64 `json:"current"`

	// Baseline is only meaningful when HasBaseline is true. Metrics absent
	// from the baseline snapshot are reported but never counted as regressions.
	Baseline    float64 `json:"baseline"`
	HasBaseline bool    `json:"has_baseline"`

	ChangeAbsolute float64 `json:"change_absolute"`

	// ChangePercent is (current-baseline)/baseline*100. When the baseline
	// value is zero the percentage is undefined and PercentDefined is false.
	ChangePercent  float64 `json:"change_percent"`
	PercentDefined bool    `json:"percent_defined"`

	Threshold float64   `json:"threshold"` // Threshold (in percent) the delta was judged against.
	Direction Direction `json:"direction"`
	Status    Status    `json:"status"`
}

// Comparison is the full verdict for a current snapshot against a baseline.
// Derived and ephemeral; not persisted by default.
type Comparison struct {
	SnapshotID   string        `json:"snapshot_id"`
	BaselineID   string        `json:"baseline_id,omitempty"`
	BaselineName string        `json:"baseline_name"`
	Timestamp    time.Time     `json:"timestamp"`
	Deltas       []MetricDelta `json:"deltas"`

	// Overall is the worst status across all deltas.
	Overall Status `json:"overall"`
}

// -- Trend Schemas --

// TrendDirection classifies the movement of a metric over its recent history.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// TrendResult describes the movement of one metric over a trailing window.
type TrendResult struct {
	Metric    string         `json:"metric"`
	Direction TrendDirection `json:"direction"`
	First     float64        `json:"first"`  // First value inside the window.
	Last      float64        `json:"last"`   // Most recent value.
	Change    float64        `json:"change"` // Last - First.
	Window    int            `json:"window"` // Number of points actually considered.
}
