package coordinator

import "errors"

// DiscussionError classifies a session-level failure for the worker: a
// retryable failure is requeued, a fatal one goes straight to the DLQ.
type DiscussionError struct {
	Err       error
	Retryable bool
}

func (e *DiscussionError) Error() string {
	return e.Err.Error()
}

func (e *DiscussionError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error) *DiscussionError {
	return &DiscussionError{Err: err, Retryable: true}
}

func NewFatalError(err error) *DiscussionError {
	return &DiscussionError{Err: err, Retryable: false}
}

// IsRetryable reports whether err is (or wraps) a retryable DiscussionError.
func IsRetryable(err error) bool {
	var de *DiscussionError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}
