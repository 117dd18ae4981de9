// internal/events/client.go
// Fire-and-forget gateway events posted to an optional collector endpoint
package events

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	EventChatCompleted  = "chat_completed"
	EventChatFailed     = "chat_failed"
	EventHistoryCleared = "history_cleared"
)

// Event is the JSON payload posted to the collector
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Timestamp int64             `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

// Client posts events to a collector. An empty endpoint disables it.
type Client struct {
	endpoint   string
	httpClient *http.Client
	enabled    bool
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 2 * time.Second,
		},
		enabled: endpoint != "",
	}
}

// Enabled reports whether Emit will post anything
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Emit sends an event asynchronously and returns its id, or "" when disabled
func (c *Client) Emit(eventType string, data map[string]string) string {
	if !c.Enabled() {
		return ""
	}

	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "madlen",
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	go c.send(event)
	return event.ID
}

func (c *Client) send(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("[events] failed to marshal event: %v", err)
		return
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		// collector not running
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("[events] %s rejected with status %d", event.Type, resp.StatusCode)
	}
}

// ChatCompleted records a successful completion
func (c *Client) ChatCompleted(model string, hasImage bool, replyLen int) string {
	return c.Emit(EventChatCompleted, map[string]string{
		"model":     model,
		"has_image": strconv.FormatBool(hasImage),
		"reply_len": strconv.Itoa(replyLen),
	})
}

// ChatFailed records a completion that errored upstream
func (c *Client) ChatFailed(model string, hasImage bool, err error) string {
	return c.Emit(EventChatFailed, map[string]string{
		"model":     model,
		"has_image": strconv.FormatBool(hasImage),
		"error":     truncate(err.Error(), 200),
	})
}

func (c *Client) HistoryCleared(removed int) string {
	return c.Emit(EventHistoryCleared, map[string]string{
		"removed": strconv.Itoa(removed),
	})
}

// truncate limits a string to maxLen bytes
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
