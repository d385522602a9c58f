// Package perf builds metric snapshots from benchmark result files and
// decorates them with build environment metadata.
package perf

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Collector turns raw benchmark output into canonical snapshots.
type Collector struct {
	log *zap.Logger

	// now is swappable for deterministic tests.
	now func() time.Time
}

func NewCollector(logger *zap.Logger) *Collector {
	return &Collector{
		log: logger.Named("collector"),
		now: time.Now,
	}
}

// resultsFile accepts both supported input shapes: a wrapped
// {"metrics": {...}} document and a bare flat map of metric values.
type resultsFile struct {
	Metrics map[string]float64 `json:"metrics"`
}

// Collect reads a benchmark results JSON file and produces a snapshot named
// name. The input is either {"metrics": {name: value}} or a flat
// {name: value} object; any other shape is an error.
func (c *Collector) Collect(path, name string) (*schemas.MetricSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	metrics, err := parseResults(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results file %s: %w", path, err)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("results file %s contains no metrics", path)
	}

	snap := &schemas.MetricSnapshot{
		ID:        uuid.NewString(),
		Name:      name,
		Timestamp: c.now().UTC(),
		Metrics:   metrics,
		Metadata:  c.environmentMetadata(),
	}
	c.log.Info("Collected benchmark snapshot",
		zap.String("id", snap.ID),
		zap.String("name", name),
		zap.Int("metrics", len(metrics)))
	return snap, nil
}

func parseResults(data []byte) (map[string]float64, error) {
	var wrapped resultsFile
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Metrics) > 0 {
		return wrapped.Metrics, nil
	}

	var flat map[string]float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("expected a metrics object or a flat name/value map: %w", err)
	}
	return flat, nil
}

// environmentMetadata captures where the benchmark ran. Every probe is best
// effort; a CI runner that refuses a syscall should not fail collection.
func (c *Collector) environmentMetadata() map[string]string {
	meta := map[string]string{
		"os":   runtime.GOOS,
		"arch": runtime.GOARCH,
	}

	if info, err := host.Info(); err == nil {
		meta["hostname"] = info.Hostname
		meta["platform"] = info.Platform
	} else {
		c.log.Debug("Host probe failed", zap.Error(err))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		meta["memory_total_bytes"] = strconv.FormatUint(vm.Total, 10)
	}
	if counts, err := cpu.Counts(true); err == nil {
		meta["cpu_count"] = strconv.Itoa(counts)
	}

	for k, v := range gitMetadata(".") {
		meta[k] = v
	}
	for k, v := range actionsMetadata() {
		meta[k] = v
	}
	return meta
}

// gitMetadata resolves commit and branch from the repository containing dir,
// returning nothing when dir is not inside a work tree.
func gitMetadata(dir string) map[string]string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil
	}
	meta := map[string]string{"git_commit": head.Hash().String()}
	if head.Name().IsBranch() {
		meta["git_branch"] = head.Name().Short()
	}
	return meta
}

// actionsMetadata copies the GitHub Actions environment we care about.
func actionsMetadata() map[string]string {
	meta := make(map[string]string)
	for env, key := range map[string]string{
		"GITHUB_RUN_ID":     "github_run_id",
		"GITHUB_RUN_NUMBER": "github_run_number",
		"GITHUB_SHA":        "github_sha",
		"GITHUB_REF_NAME":   "github_ref",
		"GITHUB_WORKFLOW":   "github_workflow",
		"GITHUB_ACTOR":      "github_actor",
	} {
		if v := os.Getenv(env); v != "" {
			meta[key] = v
		}
	}
	return meta
}
