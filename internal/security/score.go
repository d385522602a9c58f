// File: internal/security/score.go
package security

import (
	"math"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
)

// Scorer aggregates vulnerability counts into a 0-100 security score.
// Severity weights are injected at construction; scoring is deterministic
// and total over non-negative inputs.
type Scorer struct {
	weights config.ScoringConfig
}

// NewScorer creates a Scorer from explicit severity weights.
func NewScorer(weights config.ScoringConfig) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the weighted security score.
//
// penalty is the severity-weighted vulnerability count; the base score is
// 100 minus penalty, floored at zero. The vulnerable-dependency ratio then
// discounts the base, but never below the configured floor: even a tree
// where every dependency is vulnerable keeps that fraction of its base
// score. The result is monotone non-increasing in every count.
func (s *Scorer) Score(counts map[schemas.Severity]int, totalDeps, vulnerableDeps int) schemas.SecurityScore {
	penalty := counts[schemas.SeverityCritical]*s.weights.WeightCritical +
		counts[schemas.SeverityHigh]*s.weights.WeightHigh +
		counts[schemas.SeverityMedium]*s.weights.WeightMedium +
		counts[schemas.SeverityLow]*s.weights.WeightLow

	base := 100 - penalty
	if base < 0 {
		base = 0
	}

	ratio := 0.0
	if totalDeps > 0 {
		ratio = float64(vulnerableDeps) / float64(totalDeps)
	}
	factor := math.Max(s.weights.RatioFloor, 1-ratio)

	final := int(math.Floor(float64(base) * factor))

	// Clamping only matters for misconfigured floors > 1.
	if final > 100 {
		final = 100
	}
	if final < 0 {
		final = 0
	}

	normalized := make(map[schemas.Severity]int, len(schemas.Severities))
	for _, sev := range schemas.Severities {
		normalized[sev] = counts[sev]
	}

	return schemas.SecurityScore{
		Score:              final,
		Category:           Categorize(final),
		Penalty:            penalty,
		TotalDependencies:  totalDeps,
		VulnerableCount:    vulnerableDeps,
		VulnerabilityRatio: ratio,
		SeverityCounts:     normalized,
	}
}

// ScoreSnapshot is a convenience wrapper deriving all inputs from a scan
// snapshot.
func (s *Scorer) ScoreSnapshot(snap *schemas.SecuritySnapshot) schemas.SecurityScore {
	return s.Score(snap.SeverityCounts(), len(snap.Dependencies), snap.VulnerableDependencies())
}

// Categorize buckets a numeric score into its human-readable tier.
func Categorize(score int) schemas.ScoreCategory {
	switch {
	case score >= 90:
		return schemas.ScoreExcellent
	case score >= 70:
		return schemas.ScoreGood
	case score >= 50:
		return schemas.ScoreFair
	default:
		return schemas.ScorePoor
	}
}
