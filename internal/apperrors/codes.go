package apperrors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client or an upstream service is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeAlreadyExists indicates the resource already exists.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodePayloadTooLarge indicates the uploaded audio exceeds the size cap.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Authentication/Authorization errors
const (
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeTokenExpired indicates the authentication token has expired.
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
	// ErrCodeInvalidToken indicates the authentication token is invalid.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Entitlement errors
const (
	// ErrCodeEntitlementDenied indicates the user's plan or usage counters
	// do not allow the requested transcription. Not a system fault.
	ErrCodeEntitlementDenied ErrorCode = "ENTITLEMENT_DENIED"
)

// Transcription adapter errors
const (
	// ErrCodeAdapterAuth indicates the speech-to-text service rejected our credentials.
	ErrCodeAdapterAuth ErrorCode = "ADAPTER_AUTH_ERROR"
	// ErrCodeAdapterTimeout indicates a speech-to-text call exceeded its deadline.
	ErrCodeAdapterTimeout ErrorCode = "ADAPTER_TIMEOUT"
	// ErrCodeAdapterRateLimit indicates the speech-to-text service is rate limiting us.
	ErrCodeAdapterRateLimit ErrorCode = "ADAPTER_RATE_LIMIT"
	// ErrCodeAdapterProcessing indicates the speech-to-text service failed to process audio.
	ErrCodeAdapterProcessing ErrorCode = "ADAPTER_PROCESSING_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeDatabaseError indicates a database error.
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeMediaProcessing indicates ffmpeg/ffprobe failed on the input media.
	ErrCodeMediaProcessing ErrorCode = "MEDIA_PROCESSING_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeAdapterTimeout:     true,
	ErrCodeAdapterRateLimit:   true,
	ErrCodeDatabaseError:      true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
