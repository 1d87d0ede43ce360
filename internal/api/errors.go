package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrAuthExpired is returned for any 401 on an authenticated call. By the time
// the caller sees it the session has already been logged out.
var ErrAuthExpired = errors.New("session expired, please log in again")

// StatusError is a non-2xx, non-401 response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Detail is the server's "detail" field, when it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.StatusCode)
}

// NotFound reports whether the server answered 404.
func (e *StatusError) NotFound() bool { return e.StatusCode == 404 }

// TransportError wraps a failure that happened before a response arrived.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsNetworkOrServer reports whether err is a server-side or transport failure,
// as opposed to an auth expiry or a local validation error.
func IsNetworkOrServer(err error) bool {
	var se *StatusError
	var te *TransportError
	return errors.As(err, &se) || errors.As(err, &te)
}

// Message turns err into one line fit for a status bar. For server and
// transport failures the server's detail wins over fallback, and fallback wins
// over the raw error. Local errors keep their own text.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAuthExpired) {
		return ErrAuthExpired.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	var se *StatusError
	if errors.As(err, &se) && strings.TrimSpace(se.Detail) != "" {
		return se.Detail
	}
	if IsNetworkOrServer(err) && strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return err.Error()
}
