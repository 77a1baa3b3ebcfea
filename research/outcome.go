package research

import (
	errorskg "github.com/sweetpotato0/ai-research/errors"
)

// Reason codes that have no underlying error.
const (
	ReasonNoEvidence = "no_evidence"
	ReasonEmptyQuery = "empty_query"
)

// Outcome is a stage result tagged with whether a fallback produced it.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Reason   string
	Err      error
}

func success[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// fallback tags v as a substitute produced because of err.
func fallback[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Reason: errorskg.Reason(err), Err: err}
}

// degraded tags v as a substitute produced for a reason with no error.
func degraded[T any](v T, reason string) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Reason: reason}
}
