package model

import (
	"fmt"
	"strings"
)

// ValidationError is a client-side input error. It is raised before any
// request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RequireName trims s and fails when nothing is left.
func RequireName(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &ValidationError{Field: field, Message: "Name is required"}
	}
	return s, nil
}
