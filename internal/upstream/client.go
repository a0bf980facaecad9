// Package upstream wraps the remote back-office REST API. Every network
// call the gateway makes goes through this client: it centralizes the base
// URL, the session token cookie, timeout and error shaping, and retries an
// idempotent read at most once.
package upstream

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
)

// TokenCookie is the cookie carrying the upstream session token.
const TokenCookie = "token"

// Error is a shaped upstream failure with a human-readable message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// IsAuth reports whether the error denotes an expired or invalid token.
func (e *Error) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Client wraps interactions with the back-office API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ping checks if the remote API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return &Error{Status: resp.StatusCode}
	}
	return nil
}

// get performs an authenticated GET, retrying once on transport failure or
// a 5xx response. Reads are idempotent against the upstream API.
func (c *Client) get(ctx context.Context, token, path string, values url.Values, dest any) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		err := c.do(ctx, token, http.MethodGet, path, values, nil, "", dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// postJSON performs an authenticated POST with a JSON body. Mutations are
// never retried automatically.
func (c *Client) postJSON(ctx context.Context, token, path string, body, dest any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, token, http.MethodPost, path, nil, bytes.NewReader(raw), "application/json", dest)
}

func (c *Client) putJSON(ctx context.Context, token, path string, body, dest any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, token, http.MethodPut, path, nil, bytes.NewReader(raw), "application/json", dest)
}

func (c *Client) delete(ctx context.Context, token, path string, dest any) error {
	return c.do(ctx, token, http.MethodDelete, path, nil, nil, "", dest)
}

// postMultipart performs an authenticated POST with a prepared multipart
// body. The caller owns building the body so upload progress can be
// observed on the reader.
func (c *Client) postMultipart(ctx context.Context, token, path string, body io.Reader, contentType string, dest any) error {
	return c.do(ctx, token, http.MethodPost, path, nil, body, contentType, dest)
}

func (c *Client) do(ctx context.Context, token, method, path string, values url.Values, body io.Reader, contentType string, dest any) error {
	endpoint := c.baseURL + path
	if len(values) > 0 {
		endpoint += "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: extractMessage(payload)}
	}

	if dest == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("upstream: decode response: %w", err)
	}
	return nil
}

// extractMessage pulls the human-readable message from a failed response
// body, falling back to the raw body when it is short plain text.
func extractMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	text := strings.TrimSpace(string(payload))
	if len(text) > 0 && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	return ""
}

func retryable(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	// Transport-level failure.
	return true
}
