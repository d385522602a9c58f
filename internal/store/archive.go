// File: internal/store/archive.go
package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
)

// Archive moves history snapshots older than olderThan into the archive
// namespace, re-encoded as brotli-compressed .json.br files. Archived
// snapshots no longer appear in history listings but remain recoverable.
// Returns the number of files archived.
func (s *FS) Archive(ctx context.Context, olderThan time.Duration) (int, error) {
	dir := filepath.Join(s.root, perfHistoryDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}
	cutoff := cutoffFromAge(time.Now(), olderThan)

	archived := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return archived, ctx.Err()
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		src := filepath.Join(dir, e.Name())
		dst := filepath.Join(s.root, archiveDir, e.Name()+".br")
		if err := compressFile(src, dst); err != nil {
			s.log.Warn("Failed to archive snapshot", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		if err := os.Remove(src); err != nil {
			// The compressed copy exists; removing the original is best-effort.
			s.log.Warn("Archived snapshot left in history", zap.String("file", e.Name()), zap.Error(err))
		}
		archived++
	}
	if archived > 0 {
		s.log.Info("History archived", zap.Int("count", archived),
			zap.Duration("older_than", olderThan))
	}
	return archived, nil
}

// ReadArchived decompresses and decodes a single archived snapshot by its
// archive filename (e.g. "api-bench-...json.br").
func (s *FS) ReadArchived(name string) ([]byte, error) {
	f, err := os.Open(filepath.Join(s.root, archiveDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open archived snapshot: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archived snapshot: %w", err)
	}
	return data, nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	// Compression level 6 trades well between ratio and CI time; snapshots
	// are small JSON documents.
	w := brotli.NewWriterLevel(out, 6)
	if _, err := io.Copy(w, in); err != nil {
		w.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := w.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
