package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoDocuments signals that the vector index holds no chunks at all.
	// Callers short-circuit to the empty knowledge base answer instead of generating.
	ErrNoDocuments = errors.New("no documents in knowledge base")

	// ErrIndexUnavailable indicates the vector index could not be reached
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrEmbedding indicates the embedding provider failed
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the generation provider failed
	ErrGeneration = errors.New("generation failed")

	// ErrGenerationParse indicates model output did not match the expected schema
	ErrGenerationParse = errors.New("generation output could not be parsed")

	// ErrConnector wraps failures of a single external knowledge connector
	ErrConnector = errors.New("external connector failed")

	// ErrNoResults indicates a connector answered successfully but found nothing.
	// It is never retried.
	ErrNoResults = errors.New("no results found")

	// ErrTransient marks failures worth exactly one retry (network, 5xx, 429)
	ErrTransient = errors.New("transient failure")

	// ErrPipelineTimeout indicates the global pipeline deadline was exceeded
	ErrPipelineTimeout = errors.New("pipeline deadline exceeded")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
