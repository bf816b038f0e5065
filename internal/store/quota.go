package store

// DefaultMaxSteps is the default number of accepted mutations allowed in a
// single top-level Set call, including every mutation its effects cascade
// into.
const DefaultMaxSteps = 10000

// QuotaEnforcer counts accepted mutations within one top-level Set.
//
// Cycle detection catches re-entrant patterns (a -> b -> a). The quota
// catches fan-out explosions, where effects set many distinct fields and
// each of those sets many more.
type QuotaEnforcer struct {
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
// A limit below 1 disables enforcement.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates it against the limit.
func (q *QuotaEnforcer) Check(store, key string) error {
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &QuotaError{
			Store: store,
			Key:   key,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Reset sets the step counter back to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the number of steps taken since the last Reset.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// Limit returns the configured maximum.
func (q *QuotaEnforcer) Limit() int {
	return q.maxSteps
}
