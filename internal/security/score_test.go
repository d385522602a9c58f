// File: internal/security/score_test.go
package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pipewatch/api/schemas"
	"github.com/xkilldash9x/pipewatch/internal/config"
	"github.com/xkilldash9x/pipewatch/internal/security"
)

func defaultScorer() *security.Scorer {
	return security.NewScorer(config.NewDefaultConfig().Scoring)
}

func TestScoreCleanTree(t *testing.T) {
	t.Parallel()

	score := defaultScorer().Score(nil, 100, 0)
	assert.Equal(t, 100, score.Score)
	assert.Equal(t, schemas.ScoreExcellent, score.Category)
	assert.Equal(t, 0, score.Penalty)
	assert.Zero(t, score.VulnerabilityRatio)
}

func TestScoreHeavyFindings(t *testing.T) {
	t.Parallel()

	// 2 high + 5 medium + 8 low across 10 of 150 dependencies.
	// penalty = 2*20 + 5*10 + 8*5 = 130, base floors at 0.
	counts := map[schemas.Severity]int{
		schemas.SeverityHigh:   2,
		schemas.SeverityMedium: 5,
		schemas.SeverityLow:    8,
	}
	score := defaultScorer().Score(counts, 150, 10)

	assert.Equal(t, 130, score.Penalty)
	assert.Equal(t, 0, score.Score)
	assert.Equal(t, schemas.ScorePoor, score.Category)
	assert.InDelta(t, 10.0/150.0, score.VulnerabilityRatio, 1e-9)
}

func TestScoreRatioDiscount(t *testing.T) {
	t.Parallel()

	// One low finding, penalty 5, base 95. Half the tree vulnerable
	// discounts to floor(95 * 0.5) = 47.
	counts := map[schemas.Severity]int{schemas.SeverityLow: 1}
	score := defaultScorer().Score(counts, 10, 5)

	assert.Equal(t, 47, score.Score)
	assert.Equal(t, schemas.ScorePoor, score.Category)
}

func TestScoreRatioFloor(t *testing.T) {
	t.Parallel()

	// Every dependency vulnerable: the factor bottoms out at 0.5, not 0.
	counts := map[schemas.Severity]int{schemas.SeverityLow: 2}
	score := defaultScorer().Score(counts, 4, 4)

	// penalty 10, base 90, factor 0.5 -> 45.
	assert.Equal(t, 45, score.Score)
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()
	s := defaultScorer()

	extremes := []map[schemas.Severity]int{
		nil,
		{schemas.SeverityCritical: 50},
		{schemas.SeverityCritical: 1000, schemas.SeverityHigh: 1000},
		{schemas.SeverityLow: 1},
	}
	for _, counts := range extremes {
		for _, total := range []int{0, 1, 10, 10000} {
			score := s.Score(counts, total, total/2)
			assert.GreaterOrEqual(t, score.Score, 0)
			assert.LessOrEqual(t, score.Score, 100)
		}
	}
}

func TestScoreMonotoneInCounts(t *testing.T) {
	t.Parallel()
	s := defaultScorer()

	prev := 101
	for crit := 0; crit <= 4; crit++ {
		score := s.Score(map[schemas.Severity]int{schemas.SeverityCritical: crit}, 100, crit)
		assert.LessOrEqual(t, score.Score, prev, "adding a critical must not raise the score")
		prev = score.Score
	}
}

func TestScoreSnapshot(t *testing.T) {
	t.Parallel()

	snap := &schemas.SecuritySnapshot{
		Dependencies: []schemas.DependencyRecord{
			{Name: "left-pad", Vulnerabilities: []schemas.VulnerabilityRecord{
				{ID: "GHSA-1", Severity: schemas.SeverityHigh},
			}},
			{Name: "lodash"},
			{Name: "express"},
			{Name: "requests"},
		},
	}
	score := defaultScorer().ScoreSnapshot(snap)

	// penalty 20, base 80, ratio 1/4, factor 0.75 -> 60.
	assert.Equal(t, 60, score.Score)
	assert.Equal(t, schemas.ScoreFair, score.Category)
	assert.Equal(t, 4, score.TotalDependencies)
	assert.Equal(t, 1, score.VulnerableCount)
}

func TestCategorizeTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  schemas.ScoreCategory
	}{
		{100, schemas.ScoreExcellent},
		{90, schemas.ScoreExcellent},
		{89, schemas.ScoreGood},
		{70, schemas.ScoreGood},
		{69, schemas.ScoreFair},
		{50, schemas.ScoreFair},
		{49, schemas.ScorePoor},
		{0, schemas.ScorePoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, security.Categorize(tc.score), "score %d", tc.score)
	}
}
