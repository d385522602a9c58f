// File: internal/security/npm.go
package security

import (
	"context"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// NpmAuditor wraps `npm audit --json` (npm v7+ report format).
type NpmAuditor struct {
	runner CommandRunner
}

func NewNpmAuditor(runner CommandRunner) *NpmAuditor {
	return &NpmAuditor{runner: runner}
}

func (a *NpmAuditor) Ecosystem() string { return "npm" }
func (a *NpmAuditor) Manifest() string  { return "package.json" }

// npmAuditReport mirrors the subset of the npm v7+ audit JSON we consume.
type npmAuditReport struct {
	Vulnerabilities map[string]struct {
		Name         string `json:"name"`
		Severity     string `json:"severity"`
		Via          []any  `json:"via"`
		Range        string `json:"range"`
		FixAvailable any    `json:"fixAvailable"`
	} `json:"vulnerabilities"`
}

// Audit runs npm audit and normalizes its report. npm nests advisory details
// inside "via" entries, mixing objects (direct advisories) with strings
// (transitive references); only the objects carry advisory data.
func (a *NpmAuditor) Audit(ctx context.Context, dir string) ([]schemas.DependencyRecord, error) {
	out, err := a.runner.Run(ctx, dir, "npm", "audit", "--json")
	if err != nil {
		return nil, err
	}

	var report npmAuditReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, fmt.Errorf("failed to parse npm audit output: %w", err)
	}

	var records []schemas.DependencyRecord
	for pkgName, entry := range report.Vulnerabilities {
		record := schemas.DependencyRecord{
			Name:           pkgName,
			Version:        entry.Range,
			PackageManager: "npm",
		}
		for _, via := range entry.Via {
			advisory, ok := via.(map[string]any)
			if !ok {
				continue // transitive reference, advisory recorded on its own package
			}
			vuln := schemas.VulnerabilityRecord{
				PackageName:    pkgName,
				PackageVersion: entry.Range,
				Severity:       schemas.ParseSeverity(stringField(advisory, "severity")),
				Description:    stringField(advisory, "title"),
				URL:            stringField(advisory, "url"),
			}
			if id := stringField(advisory, "url"); vuln.ID == "" && id != "" {
				vuln.ID = advisoryIDFromURL(id)
			}
			if vuln.ID == "" {
				vuln.ID = fmt.Sprintf("npm-%s-%s", pkgName, stringField(advisory, "source"))
			}
			record.Vulnerabilities = append(record.Vulnerabilities, vuln)
		}
		if fix, ok := entry.FixAvailable.(map[string]any); ok {
			if v := stringField(fix, "version"); v != "" {
				for i := range record.Vulnerabilities {
					record.Vulnerabilities[i].FixVersions = []string{v}
				}
			}
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// advisoryIDFromURL extracts the GHSA identifier from a GitHub advisory URL.
func advisoryIDFromURL(url string) string {
	const marker = "/advisories/"
	for i := 0; i+len(marker) <= len(url); i++ {
		if url[i:i+len(marker)] == marker {
			return url[i+len(marker):]
		}
	}
	return url
}
