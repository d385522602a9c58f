// File: internal/store/fs.go
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// json is the codec for all snapshot files. jsoniter keeps the exact
// encoding/json wire behavior, so files written by older builds stay readable.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	perfHistoryDir      = "history"
	perfBaselineDir     = "baselines"
	securityHistoryDir  = "security/history"
	securityBaselineDir = "security/baselines"
	archiveDir          = "archive"
	historyTimeLayout   = "20060102T150405.000000000Z"
)

// FS is the filesystem snapshot store. It implements schemas.MetricStore and
// schemas.SecurityStore.
type FS struct {
	root string
	log  *zap.Logger
}

// NewFS opens (and lazily creates) a filesystem store rooted at root.
// The root supports ~ expansion.
func NewFS(root string, logger *zap.Logger) (*FS, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand store root %q: %w", root, err)
	}

	s := &FS{root: expanded, log: logger.Named("store")}
	for _, dir := range []string{perfHistoryDir, perfBaselineDir, securityHistoryDir, securityBaselineDir, archiveDir} {
		if err := os.MkdirAll(filepath.Join(expanded, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the expanded store root directory.
func (s *FS) Root() string { return s.root }

// Save appends a performance snapshot to history.
func (s *FS) Save(_ context.Context, snap *schemas.MetricSnapshot) (string, error) {
	if snap.ID == "" {
		return "", fmt.Errorf("refusing to save snapshot without an id")
	}
	name := fmt.Sprintf("%s-%s-%s.json",
		sanitizeName(snap.Name), snap.Timestamp.UTC().Format(historyTimeLayout), snap.ID)
	path := filepath.Join(s.root, perfHistoryDir, name)
	if err := s.writeJSON(path, snap); err != nil {
		return "", err
	}
	s.log.Debug("Snapshot saved", zap.String("path", path))
	return path, nil
}

// SaveBaseline overwrites the single baseline slot for name.
func (s *FS) SaveBaseline(_ context.Context, snap *schemas.MetricSnapshot, name string) (string, error) {
	path := filepath.Join(s.root, perfBaselineDir, sanitizeName(name)+".json")
	if err := s.writeJSON(path, snap); err != nil {
		return "", err
	}
	s.log.Info("Baseline updated", zap.String("baseline", name), zap.String("snapshot_id", snap.ID))
	return path, nil
}

// LoadBaseline returns the baseline for name, or (nil, false, nil) when it
// does not exist yet. A missing baseline is the normal first-run case and
// must never fail the pipeline.
func (s *FS) LoadBaseline(_ context.Context, name string) (*schemas.MetricSnapshot, bool, error) {
	path := filepath.Join(s.root, perfBaselineDir, sanitizeName(name)+".json")
	var snap schemas.MetricSnapshot
	ok, err := s.readJSON(path, &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	return &snap, true, nil
}

// ListHistory returns performance snapshots most-recent-first. Corrupt files
// are skipped with a warning; they never abort the listing. The filename
// prefix only narrows the candidates; series membership comes from the
// decoded Name field, since series names may themselves contain hyphens.
func (s *FS) ListHistory(_ context.Context, nameFilter string, limit int) ([]*schemas.MetricSnapshot, error) {
	dir := filepath.Join(s.root, perfHistoryDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	prefix := ""
	if nameFilter != "" {
		prefix = sanitizeName(nameFilter) + "-"
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		names = append(names, e.Name())
	}
	// Filenames embed a fixed-width UTC timestamp, so lexical order is
	// chronological. Newest first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var snaps []*schemas.MetricSnapshot
	for _, name := range names {
		if limit > 0 && len(snaps) >= limit {
			break
		}
		var snap schemas.MetricSnapshot
		ok, err := s.readJSON(filepath.Join(dir, name), &snap)
		if err != nil {
			s.log.Warn("Skipping corrupt history snapshot",
				zap.String("file", name), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		if nameFilter != "" && snap.Name != nameFilter {
			continue
		}
		snaps = append(snaps, &snap)
	}
	return snaps, nil
}

// SaveScan appends a security snapshot to the security history namespace.
func (s *FS) SaveScan(_ context.Context, snap *schemas.SecuritySnapshot) (string, error) {
	if snap.BuildID == "" {
		return "", fmt.Errorf("refusing to save scan snapshot without a build id")
	}
	name := fmt.Sprintf("%s-%s.json",
		snap.Timestamp.UTC().Format(historyTimeLayout), sanitizeName(snap.BuildID))
	path := filepath.Join(s.root, securityHistoryDir, name)
	if err := s.writeJSON(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

// SaveScanBaseline overwrites the security baseline slot for name.
func (s *FS) SaveScanBaseline(_ context.Context, snap *schemas.SecuritySnapshot, name string) (string, error) {
	path := filepath.Join(s.root, securityBaselineDir, sanitizeName(name)+".json")
	if err := s.writeJSON(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

// LoadScanBaseline returns the security baseline for name, or
// (nil, false, nil) when absent.
func (s *FS) LoadScanBaseline(_ context.Context, name string) (*schemas.SecuritySnapshot, bool, error) {
	path := filepath.Join(s.root, securityBaselineDir, sanitizeName(name)+".json")
	var snap schemas.SecuritySnapshot
	ok, err := s.readJSON(path, &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	return &snap, true, nil
}

// writeJSON writes v atomically: temp file in the target directory, then
// rename. A crashed run never leaves a half-written snapshot behind.
func (s *FS) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize snapshot file: %w", err)
	}
	return nil
}

// readJSON decodes path into v. A missing file reports (false, nil); a file
// that exists but cannot be decoded reports ErrMalformedSnapshot.
func (s *FS) readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, filepath.Base(path), err)
	}
	return true, nil
}

// ReadSnapshotFile decodes a single required snapshot file from an arbitrary
// path. Unlike history listing, a corrupt file here is an error the caller
// must see.
func ReadSnapshotFile(path string) (*schemas.MetricSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	var snap schemas.MetricSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, filepath.Base(path), err)
	}
	return &snap, nil
}

// Prune removes the oldest history snapshots beyond keep for the given suite
// name filter ("" prunes across all suites). It returns the number removed.
func (s *FS) Prune(_ context.Context, nameFilter string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	dir := filepath.Join(s.root, perfHistoryDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	prefix := ""
	if nameFilter != "" {
		prefix = sanitizeName(nameFilter) + "-"
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if prefix != "" {
			if !strings.HasPrefix(e.Name(), prefix) {
				continue
			}
			// Prefix matches can span series ("api" vs "api-bench"); only
			// the decoded Name decides. Undecodable files stay untouched
			// under a filter.
			var snap schemas.MetricSnapshot
			if ok, err := s.readJSON(filepath.Join(dir, e.Name()), &snap); err != nil || !ok || snap.Name != nameFilter {
				continue
			}
		}
		names = append(names, e.Name())
	}
	if len(names) <= keep {
		return 0, nil
	}
	sort.Strings(names) // oldest first

	removed := 0
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			s.log.Warn("Failed to prune history snapshot", zap.String("file", name), zap.Error(err))
			continue
		}
		removed++
	}
	s.log.Info("History pruned", zap.Int("removed", removed), zap.Int("kept", keep))
	return removed, nil
}

// cutoffFromAge converts a retention age to the newest timestamp eligible for
// archival.
func cutoffFromAge(now time.Time, olderThan time.Duration) time.Time {
	return now.Add(-olderThan).UTC()
}
