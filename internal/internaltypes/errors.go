package internaltypes

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the transport layer can map it to a
// status code without string matching.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindOutOfHours         Kind = "out_of_hours"
	KindPeakLimitExceeded  Kind = "peak_limit_exceeded"
	KindConflict           Kind = "conflict"
	KindInvariantViolation Kind = "invariant_violation"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
