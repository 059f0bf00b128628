package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrRateLimited reports a 429 from the service.
var ErrRateLimited = errors.New("rate limited")

// Client talks to the ranking service over HTTP.
type Client struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx answer.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ready calls GET /readyz.
func (c *Client) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

// Submit posts one submission.
func (c *Client) Submit(ctx context.Context, s Submission) (SubmitResult, error) {
	var res SubmitResult
	err := c.do(ctx, http.MethodPost, "/scores", s, &res)
	return res, err
}

// Rankings reads a mode's board.
func (c *Client) Rankings(ctx context.Context, mode string) ([]Row, error) {
	var rows []Row
	err := c.do(ctx, http.MethodGet, "/rankings?mode="+url.QueryEscape(mode), nil, &rows)
	return rows, err
}

// Reset clears every board. It needs the admin secret.
func (c *Client) Reset(ctx context.Context) ([]string, error) {
	var out struct {
		Cleared []string `json:"cleared"`
	}
	err := c.do(ctx, http.MethodPost, "/admin/reset", nil, &out)
	return out.Cleared, err
}
