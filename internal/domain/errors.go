package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	// ErrValidation is the root of every input-shape error. Specific
	// validation errors wrap it so callers can match on either.
	ErrValidation = errors.New("validation failed")

	ErrInvalidType      = fmt.Errorf("%w: type must be email or push", ErrValidation)
	ErrInvalidEmail     = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrInvalidRecipient = fmt.Errorf("%w: device token cannot be empty", ErrValidation)
	ErrInvalidContent   = fmt.Errorf("%w: content must not be empty", ErrValidation)
	ErrInvalidUserID    = fmt.Errorf("%w: user_id must not be empty", ErrValidation)
	ErrRecipientTooLong = fmt.Errorf("%w: recipient exceeds %d characters", ErrValidation, MaxRecipientLen)
	ErrSubjectTooLong   = fmt.Errorf("%w: subject exceeds %d characters", ErrValidation, MaxSubjectLen)

	ErrNotFound          = errors.New("notification not found")
	ErrForbidden         = errors.New("access denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownType       = errors.New("unknown notification type")

	// ErrTransport marks queue push/pop failures.
	ErrTransport = errors.New("queue transport error")
	// ErrMalformedJob is returned by a transport when a payload was removed
	// from the queue but could not be decoded into a job.
	ErrMalformedJob = errors.New("malformed queue payload")
	// ErrSend marks channel sender failures.
	ErrSend = errors.New("channel send failed")
)
