package domain

// Result is the closed outcome vocabulary for engine operations. Expected
// rule violations are values of this type, never errors.
type Result string

const (
	ResultSuccess         Result = "SUCCESS"
	ResultRegionNotFound  Result = "REGION_NOT_FOUND"
	ResultRegionFortified Result = "REGION_FORTIFIED"
	ResultRegionProtected Result = "REGION_PROTECTED"
	ResultNotAdjacent     Result = "NOT_ADJACENT"
	ResultRateLimited     Result = "RATE_LIMITED"
	ResultInvalidAction   Result = "INVALID_ACTION"
	ResultNoActiveRound   Result = "NO_ACTIVE_ROUND"
	ResultAlreadyOwned    Result = "ALREADY_OWNED"
)

// OK reports whether the operation was accepted.
func (r Result) OK() bool { return r == ResultSuccess }

func (r Result) String() string { return string(r) }

// AccrualOutcome is what AddInfluence reports back to callers: the result
// code, the points actually awarded after multipliers and rounding, and
// whether the accrual triggered a capture.
type AccrualOutcome struct {
	Result   Result
	Points   float64
	Captured bool
}
