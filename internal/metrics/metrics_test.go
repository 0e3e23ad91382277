package metrics

import "testing"

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register() // second call must not panic on duplicate registration
}

func TestCounters(t *testing.T) {
	Register()

	IncOperation("create", OutcomeSuccess)
	IncOperation("delete", OutcomeFailed)
	IncRetry()
	IncRateLimited()
}
