package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Quote Source Errors
	ErrQuoteUnavailable     = errors.New("quote source is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the quote source")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("quote source authentication failed (check API keys)")
	ErrSymbolNotFound       = errors.New("symbol not found on the quote source")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrInsertFailed   = errors.New("database insert failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
