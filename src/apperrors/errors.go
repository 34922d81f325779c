package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks a local precondition failure. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration marks unrecoverable misconfiguration. Callers abort.
	ErrConfiguration = errors.New("configuration error")

	ErrNotFound = fmt.Errorf("%w: not found", ErrValidation)

	ErrUnexpectedEvent = fmt.Errorf("%w: unexpected event", ErrValidation)
)

// ExpiredTokenCode is the error code the API returns when the access token has expired.
const ExpiredTokenCode = "unauthorized.bad_access_token.expired"

// ConnectivityError is a non-2xx response from the banking API.
type ConnectivityError struct {
	StatusCode int
	Reason     string
	Code       string
	Message    string
}

func (e *ConnectivityError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%d - %s (%s)", e.StatusCode, reason, e.Code)
	}
	return fmt.Sprintf("%d - %s", e.StatusCode, reason)
}

// Expired reports whether the response signals an expired access token.
func (e *ConnectivityError) Expired() bool {
	return e.StatusCode == http.StatusUnauthorized && e.Code == ExpiredTokenCode
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// HTTPStatus maps an error onto the status code an HTTP handler should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsConnectivity(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
