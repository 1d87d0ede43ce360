package api

import (
	"context"
	"errors"
	"net/http"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token and stores it in the session.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"email": email, "password": password},
		public: true,
	}, &out)
	if err != nil {
		return err
	}
	return c.adopt(ctx, out)
}

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   map[string]string{"name": name, "email": email, "password": password},
		public: true,
	}, &out)
	if err != nil {
		return err
	}
	return c.adopt(ctx, out)
}

func (c *Client) adopt(ctx context.Context, out tokenResponse) error {
	if out.AccessToken == "" {
		return errors.New("server returned no access token")
	}
	if c.session == nil {
		return nil
	}
	return c.session.Login(ctx, out.AccessToken)
}

// ForgotPassword asks the server to send a reset code and returns its message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/forgot-password",
		body:   map[string]string{"email": email},
		public: true,
	}, &out)
	return out.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	var out messageResponse
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/auth/reset-password",
		body:   map[string]string{"email": email, "code": code, "new_password": newPassword},
		public: true,
	}, &out)
	return out.Message, err
}
