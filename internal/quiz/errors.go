package quiz

import "errors"

// Domain error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; anything else is treated as an internal storage failure.
var (
	// ErrNotFound covers quiz/question/attempt absence and attempts not owned
	// by the caller. Ownership misses are deliberately indistinguishable from
	// absence so non-owners learn nothing.
	ErrNotFound = errors.New("not found")

	// ErrForbidden: starting an attempt against an inactive quiz.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState: mutating an attempt that is no longer in progress.
	ErrInvalidState = errors.New("attempt not in progress")

	// ErrInvalidSubmission: answer payload shape does not match the question
	// type.
	ErrInvalidSubmission = errors.New("invalid submission")
)
