// Package auth validates credentials locally and drives the login, register
// and password-reset calls.
package auth

import (
	"context"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"lyra-cli/internal/model"
	"lyra-cli/internal/session"
)

type ValidationError = model.ValidationError

const (
	MinPasswordLen = 8
	MaxPasswordLen = 128
	MaxNameLen     = 100
	ResetCodeLen   = 6
)

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ValidateEmail trims and checks the address shape.
func ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", invalid("email", "Enter a valid email address")
	}
	return email, nil
}

// ValidatePassword enforces 8-128 characters with at least one letter and one
// digit.
func ValidatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < MinPasswordLen {
		return invalid("password", "Password must be at least 8 characters")
	}
	if n > MaxPasswordLen {
		return invalid("password", "Password must be at most 128 characters")
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter {
		return invalid("password", "Password must contain at least one letter")
	}
	if !digit {
		return invalid("password", "Password must contain at least one number")
	}
	return nil
}

func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("name", "Name cannot be empty or only whitespace")
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return "", invalid("name", "Name must be at most 100 characters")
	}
	return name, nil
}

func ValidateResetCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if utf8.RuneCountInString(code) != ResetCodeLen {
		return "", invalid("code", "Enter the 6-digit code")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", invalid("code", "Enter the 6-digit code")
		}
	}
	return code, nil
}

// API is the part of the REST client the service uses.
type API interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, code, newPassword string) (string, error)
}

type Service struct {
	api     API
	session *session.Session
}

func NewService(c API, s *session.Session) *Service {
	return &Service{api: c, session: s}
}

func (s *Service) Login(ctx context.Context, email, password string) error {
	email, err := ValidateEmail(email)
	if err != nil {
		return err
	}
	if password == "" {
		return invalid("password", "Password is required")
	}
	return s.api.Login(ctx, email, password)
}

func (s *Service) Register(ctx context.Context, name, email, password string) error {
	name, err := ValidateName(name)
	if err != nil {
		return err
	}
	email, err = ValidateEmail(email)
	if err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}
	return s.api.Register(ctx, name, email, password)
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return "", err
	}
	return s.api.ForgotPassword(ctx, email)
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return "", err
	}
	code, err = ValidateResetCode(code)
	if err != nil {
		return "", err
	}
	if err := ValidatePassword(newPassword); err != nil {
		return "", err
	}
	return s.api.ResetPassword(ctx, email, code, newPassword)
}

func (s *Service) Logout(ctx context.Context) error {
	if s.session == nil {
		return nil
	}
	return s.session.Logout(ctx)
}
