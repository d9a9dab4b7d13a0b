package apperrors

// Error codes grouped by domain.
const (
	// Auth
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeForbidden          ErrorCode = "FORBIDDEN"

	// Resources
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Job lifecycle
	CodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	CodeAlreadyPaid       ErrorCode = "ALREADY_PAID"
	CodeInvalidCode       ErrorCode = "INVALID_CODE"

	// Proposals
	CodeRoomArchived ErrorCode = "ROOM_ARCHIVED"
	CodeJobClosed    ErrorCode = "JOB_CLOSED"

	// Payments
	CodeDuplicatePayment ErrorCode = "DUPLICATE_PAYMENT"

	// Validation and system
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnavailable      ErrorCode = "UNAVAILABLE"
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
)
