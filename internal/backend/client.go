// internal/backend/client.go
// HTTP client for the chat gateway: model listing, history, chat completion.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"madlen/internal/chat"
)

// DefaultBaseURL is where the gateway listens unless configured otherwise
const DefaultBaseURL = "http://127.0.0.1:8000"

// ErrStatus is wrapped by every non-2xx response error
var ErrStatus = errors.New("unexpected status")

// StatusError carries the gateway's status code and detail text
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("gateway returned %d", e.Code)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Client talks to the gateway. It does not retry and sets no timeout; a
// caller that wants one passes a context with a deadline.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// NewClientWithHTTP lets tests inject their own http.Client
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	c := NewClient(baseURL)
	c.httpClient = hc
	return c
}

// BaseURL returns the gateway address in use
func (c *Client) BaseURL() string {
	return c.baseURL
}

var _ chat.Backend = (*Client)(nil)

// ListModels fetches the selectable models
func (c *Client) ListModels(ctx context.Context) ([]chat.Model, error) {
	var models []chat.Model
	if err := c.do(ctx, http.MethodGet, "/models", nil, &models); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// GetHistory fetches the stored transcript in chronological order
func (c *Client) GetHistory(ctx context.Context) ([]chat.Message, error) {
	var messages []chat.Message
	if err := c.do(ctx, http.MethodGet, "/history", nil, &messages); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return messages, nil
}

// SendChat posts the transcript and returns the assistant turn
func (c *Client) SendChat(ctx context.Context, req chat.ChatRequest) (chat.Message, error) {
	var reply chat.Message
	if err := c.do(ctx, http.MethodPost, "/chat", req, &reply); err != nil {
		return chat.Message{}, fmt.Errorf("send chat: %w", err)
	}
	return reply, nil
}

// ClearHistory deletes the stored transcript
func (c *Client) ClearHistory(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodDelete, "/history", nil, &status); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if status.Status != "" && status.Status != "success" {
		return fmt.Errorf("clear history: gateway reported %q", status.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var payload struct {
		Detail string `json:"detail"`
	}
	detail := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		detail = payload.Detail
	}
	return &StatusError{Code: resp.StatusCode, Detail: detail}
}
