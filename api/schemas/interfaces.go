package schemas

import "context"

// MetricStore is the persistence contract for performance snapshots.
// Implementations live in internal/store (filesystem, PostgreSQL).
//
// Absent baselines are an expected first-run condition and are reported
// through the boolean return, never as an error.
type MetricStore interface {
	// Save appends a snapshot to history and returns its storage location.
	Save(ctx context.Context, snap *MetricSnapshot) (string, error)

	// SaveBaseline promotes a snapshot to the single baseline slot for name,
	// overwriting any previous holder.
	SaveBaseline(ctx context.Context, snap *MetricSnapshot, name string) (string, error)

	// LoadBaseline returns the baseline for name, or (nil, false, nil) when
	// no baseline of that name exists yet.
	LoadBaseline(ctx context.Context, name string) (*MetricSnapshot, bool, error)

	// ListHistory returns snapshots most-recent-first, optionally filtered by
	// suite name. Corrupt entries are skipped with a warning, never abort the
	// listing. limit <= 0 means no limit.
	ListHistory(ctx context.Context, nameFilter string, limit int) ([]*MetricSnapshot, error)
}

// SecurityStore is the persistence contract for dependency scan snapshots.
type SecurityStore interface {
	SaveScan(ctx context.Context, snap *SecuritySnapshot) (string, error)
	SaveScanBaseline(ctx context.Context, snap *SecuritySnapshot, name string) (string, error)
	LoadScanBaseline(ctx context.Context, name string) (*SecuritySnapshot, bool, error)
}
