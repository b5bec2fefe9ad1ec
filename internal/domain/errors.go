package domain

import "errors"

var (
	// ErrDocumentNotFound is returned when a document id is unknown.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrJobNotFound is returned when a job cannot be found in the database.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when attempting to claim a job that is
	// not in pending status anymore.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in pending status")

	// ErrActiveJobExists rejects a second concurrent job for the same document.
	ErrActiveJobExists = errors.New("document already has an active job")

	// ErrMaxRetriesExceeded is returned when a job has exhausted its retry budget.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrUnsupportedDocumentType rejects unknown declared types before a job exists.
	ErrUnsupportedDocumentType = errors.New("unsupported document type")

	// ErrExtractionUnavailable means neither the primary model nor any fallback
	// model could be reached.
	ErrExtractionUnavailable = errors.New("extraction service unavailable")

	// ErrMalformedResponse means no extraction path returned a machine-parsable
	// structure after schema validation.
	ErrMalformedResponse = errors.New("extraction response did not match schema")

	// ErrNoFaceDetected is returned when an image yields zero face detections.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrResultNotReady means the document has a job in flight but no result yet.
	ErrResultNotReady = errors.New("document is still processing")
)

// RetryableError wraps transient errors that should trigger a queue requeue.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
