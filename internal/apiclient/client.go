// internal/apiclient/client.go
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

// TokenSource supplies the bearer token for backend calls and a refresh path
// used once per request when the backend answers 401.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Client wraps the commerce platform REST API. All dashboard traffic to the
// backend goes through it.
type Client struct {
	http   *resty.Client
	tokens TokenSource
	logger *zap.Logger
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// APIError carries the backend's HTTP status and message to the caller.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: status=%d message=%q", e.Status, e.Message)
}

func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *zap.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   c,
		tokens: tokens,
		logger: logger,
	}
}

// do performs one backend call, attaching the current access token. On a 401
// it refreshes the token exactly once and replays the call; a second 401 is
// returned to the caller as an APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	token := ""
	if c.tokens != nil {
		t, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}
		token = t
	}

	resp, err := c.exec(ctx, method, path, query, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode() == http.StatusUnauthorized && c.tokens != nil {
		c.logger.Debug("backend returned 401, refreshing token",
			zap.String("method", method),
			zap.String("path", path))

		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("token refresh: %w", err)
		}
		resp, err = c.exec(ctx, method, path, query, body, token)
		if err != nil {
			return err
		}
	}

	return decode(resp, out)
}

func (c *Client) exec(ctx context.Context, method, path string, query url.Values, body interface{}, token string) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.SetBody(body)
	}
	for k, vs := range query {
		for _, v := range vs {
			req.SetQueryParam(k, v)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decode(resp *resty.Response, out interface{}) error {
	var env envelope
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return fmt.Errorf("decode backend response: %w", err)
		}
	}

	if resp.IsError() || (!env.Success && env.Message != "") {
		status := resp.StatusCode()
		if status == http.StatusNotFound {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, env.Message)
		}
		return &APIError{Status: status, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode backend data: %w", err)
		}
	}
	return nil
}
