package llm

import "errors"

// Sentinel errors shared across the service. Components wrap these with
// fmt.Errorf("...: %w", ...) and callers match with errors.Is.
var (
	// ErrInvalidArgument marks a caller error: an empty or malformed
	// required field. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a reference to a collection or file that does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrExternalService marks a failure of an external dependency
	// (search API, model backend, vector store transport).
	ErrExternalService = errors.New("external service error")

	// ErrInvalidStartPage marks a start page past the end of a document.
	ErrInvalidStartPage = errors.New("start page exceeds document length")

	// ErrEmptyDocument marks a document with no extractable text.
	ErrEmptyDocument = errors.New("document contains no text")
)
