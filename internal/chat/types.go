// internal/chat/types.go
package chat

import "context"

// Roles used in a transcript
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Model is a selectable inference target returned by the backend
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SupportsVision bool   `json:"supports_vision,omitempty"`
}

// Message is a single transcript entry. Image holds a data URI when set.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// ChatRequest is the payload for a chat completion
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Image    string    `json:"image,omitempty"`
}

// Backend is the service the chat view talks to
type Backend interface {
	ListModels(ctx context.Context) ([]Model, error)
	GetHistory(ctx context.Context) ([]Message, error)
	SendChat(ctx context.Context, req ChatRequest) (Message, error)
	ClearHistory(ctx context.Context) error
}
