package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no actor was present.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrForbidden means the actor is known but not authorised.
	ErrForbidden = errors.New("authz: forbidden")
	// ErrCheckFailed means the decision could not be determined.
	ErrCheckFailed = errors.New("authz: check failed")
)

// Effect is the outcome of an evaluation.
type Effect uint8

const (
	EffectDeny Effect = iota
	EffectAllow
)

// Reason explains a Deny. Allow decisions carry ReasonNone.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonForbidden
	ReasonCheckFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonForbidden:
		return "forbidden"
	case ReasonCheckFailed:
		return "check_failed"
	default:
		return "none"
	}
}

// Rule records which precedence step produced the decision.
type Rule string

const (
	RuleNoActor  Rule = "no_actor"
	RuleOwner    Rule = "owner"
	RuleOverride Rule = "override"
	RuleGrant    Rule = "grant"
	RuleInvalid  Rule = "invalid_input"
	RuleStore    Rule = "store_error"
)

// Decision is a terminal Allow or Deny verdict.
type Decision struct {
	Effect Effect
	Reason Reason
	Rule   Rule
	// Cause holds the grant store failure for ReasonCheckFailed.
	Cause error
}

// Allowed reports whether the decision permits the action.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Outcome is a label suitable for metrics and logs.
func (d Decision) Outcome() string {
	if d.Allowed() {
		return "allow"
	}
	return d.Reason.String()
}

// Err maps a Deny to its sentinel error; Allow yields nil.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	case ReasonCheckFailed:
		if d.Cause != nil {
			return fmt.Errorf("%w: %w", ErrCheckFailed, d.Cause)
		}
		return ErrCheckFailed
	default:
		return ErrForbidden
	}
}

func allow(rule Rule) Decision {
	return Decision{Effect: EffectAllow, Rule: rule}
}

func deny(reason Reason, rule Rule) Decision {
	return Decision{Effect: EffectDeny, Reason: reason, Rule: rule}
}
