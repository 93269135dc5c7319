package handlers

const (
	maxBodyBytes = 64 << 10

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Authentication required"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests"
	ErrMissingID           = "id is required"
)
