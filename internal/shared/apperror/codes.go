package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput    = "INVALID_INPUT"
	CodeValidation      = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeInvalidUserID   = "INVALID_USER_ID"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInvalidState    = "INVALID_STATE"
	CodeProcessing      = "PROCESSING"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTransaction        = "TRANSACTION_ERROR"
)
