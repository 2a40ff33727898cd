// Package gateway invokes the server's functions by name over HTTP and reads
// the admin API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Function names served under /functions/v1.
const (
	FunctionTrackPageView      = "track-page-view"
	FunctionTrackWhatsAppClick = "track-whatsapp-click"
	FunctionResetAnalytics     = "reset-analytics"
)

// PathEventTotals serves the all-time event counts shown before a reset.
const PathEventTotals = "/admin/api/analytics/totals"

// FunctionError is returned for non-2xx responses.
type FunctionError struct {
	Function string
	Status   int
	Message  string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s failed with status %d: %s", e.Function, e.Status, e.Message)
}

// Invoker calls a function with a JSON body and decodes the JSON response into out.
type Invoker interface {
	Invoke(ctx context.Context, name string, body, out interface{}) error
}

// Fetcher reads a JSON admin API path into out.
type Fetcher interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// Client calls functions on one server.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sends Authorization: Bearer <token> on every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke posts body to the named function. out may be nil.
func (c *Client) Invoke(ctx context.Context, name string, body, out interface{}) error {
	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s body: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/functions/v1/"+name, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, name, out)
}

// Get reads the admin API path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, name string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke %s: %w", name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &FunctionError{Function: name, Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", name, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
