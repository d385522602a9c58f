// File: internal/perf/collector_test.go
package perf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pipewatch/internal/perf"
)

func writeResults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCollectWrappedFormat(t *testing.T) {
	c := perf.NewCollector(zaptest.NewLogger(t))

	path := writeResults(t, `{"metrics": {"response_time": 142.5, "throughput_rps": 980}}`)
	snap, err := c.Collect(path, "api-bench")
	require.NoError(t, err)

	assert.Equal(t, "api-bench", snap.Name)
	assert.Equal(t, 142.5, snap.Metrics["response_time"])
	assert.Equal(t, 980.0, snap.Metrics["throughput_rps"])
	assert.False(t, snap.Timestamp.IsZero())

	_, err = uuid.Parse(snap.ID)
	assert.NoError(t, err, "snapshot IDs are UUIDs")
}

func TestCollectFlatFormat(t *testing.T) {
	c := perf.NewCollector(zaptest.NewLogger(t))

	path := writeResults(t, `{"p99_latency_ms": 87.2, "memory_mb": 512}`)
	snap, err := c.Collect(path, "nightly")
	require.NoError(t, err)
	assert.Len(t, snap.Metrics, 2)
	assert.Equal(t, 87.2, snap.Metrics["p99_latency_ms"])
}

func TestCollectRejectsBadInput(t *testing.T) {
	c := perf.NewCollector(zaptest.NewLogger(t))

	t.Run("missing file", func(t *testing.T) {
		_, err := c.Collect(filepath.Join(t.TempDir(), "absent.json"), "x")
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := c.Collect(writeResults(t, "benchmark: 42"), "x")
		require.Error(t, err)
	})

	t.Run("non-numeric values", func(t *testing.T) {
		_, err := c.Collect(writeResults(t, `{"response_time": "fast"}`), "x")
		require.Error(t, err)
	})

	t.Run("empty metrics", func(t *testing.T) {
		_, err := c.Collect(writeResults(t, `{"metrics": {}}`), "x")
		require.Error(t, err)
	})
}

func TestCollectEnvironmentMetadata(t *testing.T) {
	t.Setenv("GITHUB_RUN_ID", "9912345678")
	t.Setenv("GITHUB_SHA", "deadbeefcafe")

	c := perf.NewCollector(zaptest.NewLogger(t))
	snap, err := c.Collect(writeResults(t, `{"metrics": {"response_time": 1}}`), "ci")
	require.NoError(t, err)

	assert.Equal(t, "9912345678", snap.Metadata["github_run_id"])
	assert.Equal(t, "deadbeefcafe", snap.Metadata["github_sha"])
	assert.NotEmpty(t, snap.Metadata["os"])
	assert.NotEmpty(t, snap.Metadata["arch"])
}

func TestCollectDistinctIDs(t *testing.T) {
	c := perf.NewCollector(zaptest.NewLogger(t))
	path := writeResults(t, `{"metrics": {"response_time": 1}}`)

	a, err := c.Collect(path, "x")
	require.NoError(t, err)
	b, err := c.Collect(path, "x")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}
