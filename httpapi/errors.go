package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the transport/auth error kinds named in the error
// handling design. http-status errors use the typed ApiError below
// instead, since callers need the status/body/header triple.
var (
	ErrTransport    = errors.New("httpapi: transport error")
	ErrAuthFailed   = errors.New("httpapi: authentication failed")
	ErrNoCredentials = errors.New("httpapi: no credentials configured")
)

// ApiError is the typed http-status error kind: a server response with
// status >= 400 after any internal retry window has been exhausted.
type ApiError struct {
	Status int
	Body   []byte
	Header http.Header
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("httpapi: server responded %d: %s", e.Status, truncate(e.Body, 256))
}

// Is reports ApiError equivalence by status, so callers can write
// errors.Is(err, &ApiError{Status: 404}) style checks if they only care
// about status.
func (e *ApiError) Is(target error) bool {
	var t *ApiError
	if errors.As(target, &t) {
		if t.Status == 0 {
			return true
		}
		return t.Status == e.Status
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func isDuplicateTokenError(status int, body []byte) bool {
	if status != http.StatusInternalServerError {
		return false
	}
	s := strings.ToLower(string(body))
	return strings.Contains(s, "duplicate entry") || strings.Contains(s, "er_dup_entry")
}
