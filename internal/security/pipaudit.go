// File: internal/security/pipaudit.go
package security

import (
	"context"
	"fmt"
	"sort"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// PipAuditor wraps `pip-audit --format json`.
type PipAuditor struct {
	runner CommandRunner
}

func NewPipAuditor(runner CommandRunner) *PipAuditor {
	return &PipAuditor{runner: runner}
}

func (a *PipAuditor) Ecosystem() string { return "pip" }
func (a *PipAuditor) Manifest() string  { return "requirements.txt" }

type pipAuditReport struct {
	Dependencies []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Vulns   []struct {
			ID          string   `json:"id"`
			FixVersions []string `json:"fix_versions"`
			Description string   `json:"description"`
			// pip-audit only emits a severity when the advisory source
			// provides one, which PyPA advisories usually do not.
			Severity string `json:"severity"`
		} `json:"vulns"`
	} `json:"dependencies"`
}

// Audit runs pip-audit against the directory's requirements file. Advisories
// without a severity are recorded as medium rather than dropped to low, since
// an unrated PyPA advisory is still an actionable finding.
func (a *PipAuditor) Audit(ctx context.Context, dir string) ([]schemas.DependencyRecord, error) {
	out, err := a.runner.Run(ctx, dir, "pip-audit", "--format", "json", "-r", "requirements.txt")
	if err != nil {
		return nil, err
	}

	var report pipAuditReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("failed to parse pip-audit output: %w", err)
	}

	var records []schemas.DependencyRecord
	for _, dep := range report.Dependencies {
		record := schemas.DependencyRecord{
			Name:           dep.Name,
			Version:        dep.Version,
			PackageManager: "pip",
		}
		for _, v := range dep.Vulns {
			sev := schemas.SeverityMedium
			if v.Severity != "" {
				sev = schemas.ParseSeverity(v.Severity)
			}
			record.Vulnerabilities = append(record.Vulnerabilities, schemas.VulnerabilityRecord{
				ID:             v.ID,
				PackageName:    dep.Name,
				PackageVersion: dep.Version,
				Severity:       sev,
				FixVersions:    v.FixVersions,
				Description:    v.Description,
			})
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}
