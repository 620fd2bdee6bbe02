package expo_service

import (
	"errors"
	"fmt"
)

// Error codes returned by the Expo API or produced locally
const (
	CodeNetworkError           = "NETWORK_ERROR"
	CodeTooManyRequests        = "TOO_MANY_REQUESTS"
	CodeInternalServerError    = "INTERNAL_SERVER_ERROR"
	CodeDeviceTokenUnavailable = "DEVICE_TOKEN_UNAVAILABLE"
	CodePermissionDenied       = "PERMISSION_DENIED"
	CodeProjectNotFound        = "PROJECT_NOT_FOUND"
	CodeValidationError        = "VALIDATION_ERROR"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeDeviceNotSupported     = "DEVICE_NOT_SUPPORTED"
	CodeUnknown                = "UNKNOWN"
)

var (
	ErrPermissionDenied  = errors.New("notification permission not granted")
	ErrMissingProjectID  = errors.New("project id is required")
	ErrInvalidToken      = errors.New("invalid push token")
	// ErrPromptUnavailable no interactive prompt is installed on the bridge
	ErrPromptUnavailable = errors.New("permission prompt unavailable")
)

// TokenError is a classified failure of token acquisition
type TokenError struct {
	Code       string // one of the Code* constants or a raw Expo error code
	Message    string
	StatusCode int // HTTP status, 0 when the request never completed
	Err        error
}

func (e *TokenError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("expo token error %s (status %d): %s", e.Code, e.StatusCode, msg)
	}
	return fmt.Sprintf("expo token error %s: %s", e.Code, msg)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// AsTokenError extracts a *TokenError from a wrapped chain
func AsTokenError(err error) (*TokenError, bool) {
	var te *TokenError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
