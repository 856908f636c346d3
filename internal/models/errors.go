package models

import "errors"

// Domain errors. The routes layer maps these to HTTP status codes; everything
// else classifies with errors.Is.
var (
	// ErrNotFound means the requested object or job does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRange means the Range header could not be parsed.
	ErrMalformedRange = errors.New("malformed range")
	// ErrRangeNotSatisfiable means the requested window starts past the last byte.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrInvalidScheduleTime means the fire instant is unparsable or not in the future.
	ErrInvalidScheduleTime = errors.New("invalid schedule time")
	// ErrInvalidPayload means the notification body failed validation.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUpstreamUnavailable means a collaborator call itself failed (network, auth).
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRecipientGone is the gateway-confirmed signal that a token will never
	// deliver again. It triggers registry pruning and is never a job failure.
	ErrRecipientGone = errors.New("recipient permanently invalid")
	// ErrJobAlreadyFired means a cancel request lost the race with the timer.
	ErrJobAlreadyFired = errors.New("job already fired")
)
