package schemas

import (
	"strings"
	"time"
)

// -- Security Schemas --

// Severity represents the severity level of a vulnerability. The values are
// lowercase to align with the on-disk snapshot format.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists all severity tiers from worst to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity normalizes scanner-specific severity strings onto the
// canonical tiers. npm reports "moderate" where most scanners say "medium";
// unknown strings conservatively map to low.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// VulnerabilityRecord is a single known vulnerability affecting a dependency.
type VulnerabilityRecord struct {
	ID             string   `json:"id"` // Advisory identifier (CVE, GHSA, OSV id).
	PackageName    string   `json:"package_name"`
	PackageVersion string   `json:"package_version"`
	Severity       Severity `json:"severity"`
	FixVersions    []string `json:"fix_versions,omitempty"`
	Description    string   `json:"description,omitempty"`
	URL            string   `json:"url,omitempty"`
}

// DependencyRecord is one resolved dependency plus any vulnerabilities
// reported against the installed version.
type DependencyRecord struct {
	Name            string                `json:"name"`
	Version         string                `json:"version"`
	PackageManager  string                `json:"package_manager"` // e.g. "npm", "pip", "go".
	Vulnerabilities []VulnerabilityRecord `json:"vulnerabilities,omitempty"`
}

// SecuritySnapshot aggregates a full dependency scan at a point in time.
// The JSON shape is the snapshot file format and must round-trip exactly
// through the store.
type SecuritySnapshot struct {
	BuildID      string             `json:"build_id"`
	Timestamp    time.Time          `json:"timestamp"`
	Dependencies []DependencyRecord `json:"dependencies"`
	ScanConfig   map[string]string  `json:"scan_config,omitempty"`
}

// SeverityCounts tallies vulnerabilities per severity tier.
func (s *SecuritySnapshot) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, dep := range s.Dependencies {
		for _, v := range dep.Vulnerabilities {
			counts[v.Severity]++
		}
	}
	return counts
}

// VulnerableDependencies counts dependencies with at least one vulnerability.
func (s *SecuritySnapshot) VulnerableDependencies() int {
	n := 0
	for _, dep := range s.Dependencies {
		if len(dep.Vulnerabilities) > 0 {
			n++
		}
	}
	return n
}

// ScoreCategory buckets a numeric security score for human consumption.
type ScoreCategory string

const (
	ScoreExcellent ScoreCategory = "excellent" // >= 90
	ScoreGood      ScoreCategory = "good"      // >= 70
	ScoreFair      ScoreCategory = "fair"      // >= 50
	ScorePoor      ScoreCategory = "poor"      // < 50
)

// SecurityScore is the derived 0-100 verdict for a SecuritySnapshot.
// It decreases monotonically as weighted vulnerability counts grow.
type SecurityScore struct {
	Score    int           `json:"score"` // Final value in [0,100].
	Category ScoreCategory `json:"category"`

	Penalty            int     `json:"penalty"` // Sum of severity-weighted vulnerability counts.
	TotalDependencies  int     `json:"total_dependencies"`
	VulnerableCount    int     `json:"vulnerable_count"`
	VulnerabilityRatio float64 `json:"vulnerability_ratio"`

	SeverityCounts map[Severity]int `json:"severity_counts"`
}
