// File: internal/security/osv.go
package security

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// OSVAuditor wraps `osv-scanner --format json`. Unlike the package-manager
// auditors it covers any lockfile osv-scanner understands, so it has no
// single manifest and runs against every directory.
type OSVAuditor struct {
	runner CommandRunner
}

func NewOSVAuditor(runner CommandRunner) *OSVAuditor {
	return &OSVAuditor{runner: runner}
}

func (a *OSVAuditor) Ecosystem() string { return "osv" }
func (a *OSVAuditor) Manifest() string  { return "" }

type osvReport struct {
	Results []struct {
		Source struct {
			Path string `json:"path"`
		} `json:"source"`
		Packages []struct {
			Package struct {
				Name      string `json:"name"`
				Version   string `json:"version"`
				Ecosystem string `json:"ecosystem"`
			} `json:"package"`
			Vulnerabilities []struct {
				ID               string `json:"id"`
				Summary          string `json:"summary"`
				DatabaseSpecific struct {
					Severity string `json:"severity"`
				} `json:"database_specific"`
				Affected []struct {
					Ranges []struct {
						Events []struct {
							Fixed string `json:"fixed"`
						} `json:"events"`
					} `json:"ranges"`
				} `json:"affected"`
			} `json:"vulnerabilities"`
		} `json:"packages"`
	} `json:"results"`
}

// Audit runs osv-scanner recursively over dir.
func (a *OSVAuditor) Audit(ctx context.Context, dir string) ([]schemas.DependencyRecord, error) {
	out, err := a.runner.Run(ctx, dir, "osv-scanner", "--format", "json", "-r", ".")
	if err != nil {
		return nil, err
	}

	var report osvReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("failed to parse osv-scanner output: %w", err)
	}

	var records []schemas.DependencyRecord
	for _, result := range report.Results {
		for _, pkg := range result.Packages {
			record := schemas.DependencyRecord{
				Name:           pkg.Package.Name,
				Version:        pkg.Package.Version,
				PackageManager: strings.ToLower(pkg.Package.Ecosystem),
			}
			for _, v := range pkg.Vulnerabilities {
				vuln := schemas.VulnerabilityRecord{
					ID:             v.ID,
					PackageName:    pkg.Package.Name,
					PackageVersion: pkg.Package.Version,
					Severity:       schemas.ParseSeverity(v.DatabaseSpecific.Severity),
					Description:    v.Summary,
					URL:            "https://osv.dev/vulnerability/" + v.ID,
				}
				for _, aff := range v.Affected {
					for _, rng := range aff.Ranges {
						for _, ev := range rng.Events {
							if ev.Fixed != "" {
								vuln.FixVersions = append(vuln.FixVersions, ev.Fixed)
							}
						}
					}
				}
				record.Vulnerabilities = append(record.Vulnerabilities, vuln)
			}
			records = append(records, record)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].Version < records[j].Version
	})
	return records, nil
}
