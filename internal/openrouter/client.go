// internal/openrouter/client.go
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"madlen/internal/chat"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1"

// ErrNoChoices is returned when a completion carries no message
var ErrNoChoices = errors.New("completion returned no choices")

// Options configures a Client
type Options struct {
	APIKey  string
	BaseURL string
	Referer string
	Title   string
	Retry   RetryConfig
	Timeout time.Duration
}

// Client calls the OpenRouter REST API
type Client struct {
	apiKey  string
	baseURL string
	referer string
	title   string
	client  *RetryableClient
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryConfig()
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		referer: opts.Referer,
		title:   opts.Title,
		client:  NewRetryableClient(opts.Retry, opts.Timeout),
	}
}

// HasAPIKey reports whether completions can be authorised
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

type apiModel struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Architecture struct {
		Modality string `json:"modality"`
	} `json:"architecture"`
	Pricing struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
}

// ListModels returns the free models OpenRouter currently offers, sorted
// by name. Callers decide what to do on error; see FallbackModels.
func (c *Client) ListModels(ctx context.Context) ([]chat.Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.DoWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []apiModel `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	return FreeModels(payload.Data), nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []contentPart
}

type completionRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error,omitempty"`
}

// BuildMessages converts a transcript into the upstream format. Earlier
// turns go as plain text; the final turn carries the image, if any, as a
// vision content array.
func BuildMessages(messages []chat.Message, image string) []apiMessage {
	if len(messages) == 0 {
		return nil
	}

	out := make([]apiMessage, 0, len(messages))
	for _, msg := range messages[:len(messages)-1] {
		out = append(out, apiMessage{Role: msg.Role, Content: msg.Content})
	}

	last := messages[len(messages)-1]
	if image != "" {
		out = append(out, apiMessage{
			Role: chat.RoleUser,
			Content: []contentPart{
				{Type: "text", Text: last.Content},
				{Type: "image_url", ImageURL: &imageURL{URL: image}},
			},
		})
	} else {
		out = append(out, apiMessage{Role: chat.RoleUser, Content: last.Content})
	}
	return out
}

// Complete sends the transcript to model and returns the reply text
func (c *Client) Complete(ctx context.Context, model string, messages []chat.Message, image string) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to send")
	}

	bodyBytes, err := json.Marshal(completionRequest{
		Model:    model,
		Messages: BuildMessages(messages, image),
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := newRequestWithBody(ctx, http.MethodPost, c.baseURL+"/chat/completions", bodyBytes)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.DoWithRetry(ctx, req)
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}

	if len(out.Choices) == 0 {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("API error: %s", out.Error.Message)
		}
		return "", ErrNoChoices
	}

	return out.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
}
