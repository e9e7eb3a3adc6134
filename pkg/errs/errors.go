package errs

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotJoined           = errors.New("not joined to room")

	ErrSandboxUnreachable = errors.New("sandbox unreachable")
	ErrUpstream           = errors.New("upstream error")
	ErrMalformedUpstream  = errors.New("malformed upstream response")
	ErrUnavailable        = errors.New("service unavailable")
	ErrTimeout            = errors.New("upstream timeout")
)

func ToHTTP(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotJoined):
		return http.StatusConflict
	case errors.Is(err, ErrMalformedUpstream):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrSandboxUnreachable), errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
