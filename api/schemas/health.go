package schemas

import "time"

// -- Health Check Schemas --

// CheckStatus is the outcome of a single maintenance health check.
type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// worse returns true if s is more severe than other.
func (s CheckStatus) worse(other CheckStatus) bool {
	order := map[CheckStatus]int{CheckOK: 0, CheckWarn: 1, CheckFail: 2}
	return order[s] > order[other]
}

// HealthCheck is the result of one named check.
type HealthCheck struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// HealthReport aggregates all checks from a single health run.
type HealthReport struct {
	Timestamp time.Time     `json:"timestamp"`
	Checks    []HealthCheck `json:"checks"`
	Overall   CheckStatus   `json:"overall"`
}

// Add records a check result and escalates the overall status if needed.
func (r *HealthReport) Add(check HealthCheck) {
	r.Checks = append(r.Checks, check)
	if r.Overall == "" {
		r.Overall = CheckOK
	}
	if check.Status.worse(r.Overall) {
		r.Overall = check.Status
	}
}
