// Package api is the HTTP client for the Lyra REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lyra-cli/internal/session"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Session
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for baseURL. The bearer token is read from sess
// on every request, so logging in or out takes effect immediately.
func NewClient(baseURL string, sess *session.Session, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		session:    sess,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("api")
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Session() *session.Session { return c.session }

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// public calls (login, register, ...) send no token and treat 401 as a
	// plain StatusError.
	public bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	log := c.logger.With(zap.String("method", r.method), zap.String("path", r.path))

	if !r.public && c.session != nil {
		if err := c.session.Require(); err != nil {
			return err
		}
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", r.method, r.path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.public && c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("Request failed", zap.String("request_id", reqID), zap.Error(err))
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	defer resp.Body.Close()
	log.Debug("Response",
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode == http.StatusUnauthorized && !r.public {
		log.Info("Server rejected token, logging out", zap.String("request_id", reqID))
		if c.session != nil {
			if lerr := c.session.Logout(context.WithoutCancel(ctx)); lerr != nil {
				log.Warn("Failed to clear session", zap.Error(lerr))
			}
		}
		return ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.StatusCode,
			Detail:     readDetail(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: decode response: %w", r.method, r.path, err)
	}
	return nil
}

// readDetail extracts the "detail" field of an error body. FastAPI-style
// validation errors send a list there; the first message is used.
func readDetail(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(b, &env) != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return strings.TrimSpace(s)
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(env.Detail, &list) == nil && len(list) > 0 {
		return strings.TrimSpace(list[0].Msg)
	}
	return ""
}

func seg(s string) string { return url.PathEscape(s) }

func projectPath(pid string) string {
	return "/projects/" + seg(pid)
}

func itemsPath(pid string) string {
	return projectPath(pid) + "/documents"
}

func documentPath(pid, did string) string {
	return itemsPath(pid) + "/" + seg(did)
}

func chapterPath(pid, did, cid string) string {
	return documentPath(pid, did) + "/chapters/" + seg(cid)
}

func scenePath(pid, did, cid, sid string) string {
	return chapterPath(pid, did, cid) + "/scenes/" + seg(sid)
}
