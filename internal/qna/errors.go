package qna

import "errors"

// Error taxonomy for the transactional core. Callers classify failures with
// errors.Is; the transport layer translates them into status codes.
var (
	// ErrValidation marks malformed or incomplete input. Client-attributable,
	// never retried.
	ErrValidation = errors.New("validation failed")

	// ErrPermission marks a caller whose role or ownership does not satisfy
	// the operation's authorization rule.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound marks a question, answer, or comment that does not exist
	// or does not belong to the stated parent.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a write that lost a compare-and-swap race against
	// the document store. Retryable by the caller, never merged silently.
	ErrConflict = errors.New("write conflict")
)
