package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so transports can map to status codes without leaking infrastructure details.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrAlreadySubmittedToday = errors.New("steps already submitted today")
	ErrStorage               = errors.New("storage error")
	ErrMalformedEntry        = errors.New("malformed entry")
	ErrNotSupported          = errors.New("not supported")
)
