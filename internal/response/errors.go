package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrNoActiveSession  ErrCode = "NO_ACTIVE_SESSION"
	ErrWrongPhase       ErrCode = "WRONG_PHASE"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrAttemptNotFound  ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptCompleted ErrCode = "ATTEMPT_COMPLETED"
	ErrResultsNotReady  ErrCode = "RESULTS_NOT_READY"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstreamDown ErrCode = "EXAM_SERVICE_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrValidation:
		return "Validation failed. Check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNoActiveSession:
		return "No active exam session. Begin the exam first."
	case ErrWrongPhase:
		return "This action is not available in the current exam phase."
	case ErrUnknownQuestion:
		return "The question does not belong to the current module."
	case ErrAttemptNotFound:
		return "The exam attempt was not found."
	case ErrAttemptCompleted:
		return "The exam attempt is already completed."
	case ErrResultsNotReady:
		return "Results are not available until the attempt is completed."
	case ErrUpstreamDown:
		return "The exam service is unreachable. Try again shortly."
	case ErrRateLimitExceeded:
		return "Too many requests. Try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
