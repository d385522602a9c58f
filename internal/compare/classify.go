// File: internal/compare/classify.go
package compare

import (
	"math"

	"github.com/xkilldash9x/pipewatch/api/schemas"
)

// DefaultWarningMultiplier sets the warning->critical escalation boundary as
// a multiple of the per-metric threshold.
const DefaultWarningMultiplier = 2.0

// Classify maps a percentage change onto a status tier. It is total and
// deterministic: every (changePercent, threshold>0, direction) input yields
// exactly one of within/warning/critical.
//
// For lower-better metrics a positive change is the regression direction;
// for higher-better metrics a negative change is. Movement in the improving
// direction is always within, regardless of magnitude.
func Classify(changePercent, threshold, warningMultiplier float64, direction schemas.Direction) schemas.Status {
	if warningMultiplier < 1 {
		warningMultiplier = DefaultWarningMultiplier
	}

	var regression float64
	switch direction {
	case schemas.DirectionHigherBetter:
		regression = -changePercent
	default:
		regression = changePercent
	}
	if regression <= 0 {
		return schemas.StatusWithin
	}

	magnitude := math.Abs(changePercent)
	switch {
	case magnitude <= threshold:
		return schemas.StatusWithin
	case magnitude <= warningMultiplier*threshold:
		return schemas.StatusWarning
	default:
		return schemas.StatusCritical
	}
}
