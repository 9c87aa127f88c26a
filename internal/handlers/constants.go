package handlers

const (
	SessionCookieName = "session_id"

	// IdempotencyKeyHeader lets clients replay a redemption safely
	IdempotencyKeyHeader = "Idempotency-Key"

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid id"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"

	maxBodyBytes = 1 << 20
)
