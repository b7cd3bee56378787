package audit

import "errors"

var (
	// ErrNotConfigured indicates no document store could be initialized.
	ErrNotConfigured = errors.New("audit store not configured")

	// ErrInvalidPayload indicates a payload does not match the schema of its event type.
	ErrInvalidPayload = errors.New("invalid audit payload")

	// ErrInvalidCursor indicates a continuation token could not be decoded.
	ErrInvalidCursor = errors.New("invalid continuation token")
)
