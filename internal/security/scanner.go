// Package security wraps external dependency auditors (npm audit, pip-audit,
// osv-scanner) and scores their findings.
//
// Each auditor shells out to its tool, parses that tool's JSON into the
// canonical DependencyRecord model at this boundary, and never leaks
// tool-specific shapes into the rest of the system.
package security

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
)

// CommandRunner abstracts subprocess execution so auditors can be tested
// against canned tool output.
type CommandRunner interface {
	// Run executes name with args in dir and returns its stdout.
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner is the production CommandRunner backed by os/exec.
type ExecRunner struct{}

// Run executes the command. Audit tools conventionally exit non-zero when
// they find vulnerabilities, so an exit error with JSON on stdout is treated
// as a successful run.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stdout.Len() > 0 {
			return stdout.Bytes(), nil
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}

// Auditor audits one package ecosystem.
type Auditor interface {
	// Ecosystem names the package manager this auditor covers (e.g. "npm").
	Ecosystem() string
	// Manifest is the file whose presence makes a directory auditable;
	// empty means the auditor applies to any directory.
	Manifest() string
	// Audit runs the external tool against dir and returns normalized records.
	Audit(ctx context.Context, dir string) ([]schemas.DependencyRecord, error)
}

// Scanner fans a directory out to the configured auditors and aggregates
// their findings into a SecuritySnapshot.
type Scanner struct {
	auditors []Auditor
	cfg      config.ScanConfig
	log      *zap.Logger
}

// NewScanner builds a scanner for the ecosystems enabled in cfg.
func NewScanner(cfg config.ScanConfig, runner CommandRunner, logger *zap.Logger) *Scanner {
	log := logger.Named("scanner")
	var auditors []Auditor
	for _, eco := range cfg.Ecosystems {
		switch eco {
		case "npm":
			auditors = append(auditors, NewNpmAuditor(runner))
		case "pip":
			auditors = append(auditors, NewPipAuditor(runner))
		case "osv":
			auditors = append(auditors, NewOSVAuditor(runner))
		default:
			log.Warn("Unknown ecosystem in scan config, skipping", zap.String("ecosystem", eco))
		}
	}
	return &Scanner{auditors: auditors, cfg: cfg, log: log}
}

// Scan audits dir with every applicable auditor. Auditors run concurrently
// (bounded by scan.concurrency); each is bounded by scan.timeout. A failing
// auditor surfaces in the returned error, but results from the auditors that
// succeeded are still included in the snapshot.
func (s *Scanner) Scan(ctx context.Context, dir, buildID string) (*schemas.SecuritySnapshot, error) {
	snap := &schemas.SecuritySnapshot{
		BuildID:   buildID,
		Timestamp: time.Now().UTC(),
		ScanConfig: map[string]string{
			"dir":        dir,
			"ecosystems": ecosystems(s.auditors),
		},
	}

	var mu sync.Mutex
	var auditErrs []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, auditor := range s.auditors {
		auditor := auditor
		if m := auditor.Manifest(); m != "" {
			if _, err := os.Stat(filepath.Join(dir, m)); err != nil {
				s.log.Debug("Manifest not present, skipping auditor",
					zap.String("ecosystem", auditor.Ecosystem()), zap.String("manifest", m))
				continue
			}
		}

		g.Go(func() error {
			actx := gctx
			if s.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(gctx, s.cfg.Timeout)
				defer cancel()
			}

			records, err := auditor.Audit(actx, dir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.log.Warn("Auditor failed",
					zap.String("ecosystem", auditor.Ecosystem()), zap.Error(err))
				auditErrs = append(auditErrs, fmt.Errorf("%s: %w", auditor.Ecosystem(), err))
				return nil // keep the other auditors running
			}
			snap.Dependencies = append(snap.Dependencies, records...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic output regardless of auditor completion order.
	sort.Slice(snap.Dependencies, func(i, j int) bool {
		a, b := snap.Dependencies[i], snap.Dependencies[j]
		if a.PackageManager != b.PackageManager {
			return a.PackageManager < b.PackageManager
		}
		return a.Name < b.Name
	})

	return snap, errors.Join(auditErrs...)
}

func ecosystems(auditors []Auditor) string {
	names := make([]string, 0, len(auditors))
	for _, a := range auditors {
		names = append(names, a.Ecosystem())
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}
