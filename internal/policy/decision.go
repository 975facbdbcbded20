// Package policy holds the authorization rules for tickets and responses.
// Every check is a pure function of (actor, resource) returning a Decision.
// Denials carry an internal reason for logging and tests; callers surface
// all of them to HTTP clients as a uniform not-found so that existence of a
// record is never confirmed to an actor who cannot see it.
package policy

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow builds a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denying decision with an internal reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Denied reports whether the decision forbids the operation.
func (d Decision) Denied() bool {
	return !d.Allowed
}
