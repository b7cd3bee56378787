package requests

import (
	"errors"
	"fmt"
)

// ErrRequestNotFound indicates no request exists with the given id.
var ErrRequestNotFound = errors.New("request not found")

// RequestError wraps request-store errors with the operation and id.
type RequestError struct {
	Op        string
	RequestID string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s operation failed for request %s: %v", e.Op, e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newRequestError(op, requestID string, err error) *RequestError {
	return &RequestError{Op: op, RequestID: requestID, Err: err}
}

// IsRequestNotFound checks if an error indicates a request was not found.
func IsRequestNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound)
}
