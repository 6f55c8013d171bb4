// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream dependency failed")
)

// Challenge is advertised on 401 responses so clients know which
// credential schemes the gateway accepts.
const Challenge = `Basic realm="labcas", Bearer`

// RespondError maps service errors to HTTP responses using RFC7807.
// Upstream failures surface as a generic 500 without leaking upstream
// error detail to the caller.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", Challenge)
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrUpstream):
		Problem(w, http.StatusInternalServerError, "Internal Error", "upstream dependency failed")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
