package examservice

import "errors"

// Sentinel errors for upstream failures. The session controller branches on
// these to decide between a retryable surface and a terminal redirect.
var (
	// ErrUnavailable covers timeouts, connection failures and 5xx responses
	// that survived the client's retry budget. The caller must assume the
	// request may or may not have been applied upstream.
	ErrUnavailable = errors.New("exam service unavailable")

	// ErrAttemptNotFound means the attempt id is unknown upstream. Fatal for
	// the current session.
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrAttemptCompleted means the attempt has already been finished
	// upstream. Fatal for the current session.
	ErrAttemptCompleted = errors.New("attempt already completed")

	// ErrBadRequest covers 4xx rejections of a payload the gateway built.
	ErrBadRequest = errors.New("exam service rejected request")
)
