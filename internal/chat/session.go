// internal/chat/session.go
package chat

import (
	"context"
	"log"
	"strings"
	"sync"
)

// Fixed banner texts, one per failure category
const (
	ErrTextModelsUnavailable = "Models could not be loaded."
	ErrTextNoResponse        = "Something went wrong. The model did not respond."
	ErrTextClearFailed       = "History could not be cleared."
)

// Session holds all mutable chat view state. Every change goes through one
// of the transition methods below; callers never write fields directly.
type Session struct {
	Models          []Model
	SelectedModelID string
	SearchTerm      string
	Messages        []Message
	PendingInput    string
	PendingImage    string
	Loading         bool
	LastError       string

	// SingleFlight rejects a send while another one is outstanding.
	// With it off, overlapping sends race on Messages exactly like the
	// unguarded client did.
	SingleFlight bool

	// local counts the trailing messages appended by sends in this
	// process that a history fetch may not know about yet.
	local int
}

// NewSession returns an empty session with the single-flight guard on
func NewSession() *Session {
	return &Session{SingleFlight: true}
}

// ApplyModels records the outcome of the model list fetch
func (s *Session) ApplyModels(models []Model, err error) {
	if err != nil {
		log.Printf("[chat] model list failed: %v", err)
		s.LastError = ErrTextModelsUnavailable
		return
	}
	s.Models = models
	if len(models) > 0 {
		s.SelectedModelID = models[0].ID
	}
}

// ApplyHistory records the outcome of the history fetch. A failure is
// treated as a cold start and never raises the banner. Messages sent
// before the fetch resolved are kept after the fetched history unless the
// server already returned them.
func (s *Session) ApplyHistory(messages []Message, err error) {
	if err != nil {
		log.Printf("[chat] history unavailable, starting empty: %v", err)
		return
	}
	local := s.Messages[len(s.Messages)-s.local:]
	merged := make([]Message, 0, len(messages)+len(local))
	merged = append(merged, messages...)
	merged = append(merged, local[overlap(messages, local):]...)
	s.Messages = merged
}

// overlap is the length of the longest prefix of local that history ends with
func overlap(history, local []Message) int {
	for k := min(len(history), len(local)); k > 0; k-- {
		if sameMessages(history[len(history)-k:], local[:k]) {
			return k
		}
	}
	return 0
}

func sameMessages(a, b []Message) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FilteredModels is the model list narrowed by the current search term
func (s *Session) FilteredModels() []Model {
	return FilterModels(s.Models, s.SearchTerm)
}

// SelectedModel returns the selected model, or false when nothing is
// selected or the selection no longer matches a known model.
func (s *Session) SelectedModel() (Model, bool) {
	if s.SelectedModelID == "" {
		return Model{}, false
	}
	for _, m := range s.Models {
		if m.ID == s.SelectedModelID {
			return m, true
		}
	}
	return Model{}, false
}

func (s *Session) SelectModel(id string) {
	s.SelectedModelID = id
}

func (s *Session) SetSearchTerm(term string) {
	s.SearchTerm = term
}

func (s *Session) SetInput(text string) {
	s.PendingInput = text
}

func (s *Session) AttachImage(dataURI string) {
	s.PendingImage = dataURI
}

func (s *Session) DiscardImage() {
	s.PendingImage = ""
}

// CanSend reports whether BeginSend would start a request
func (s *Session) CanSend() bool {
	if strings.TrimSpace(s.PendingInput) == "" && s.PendingImage == "" {
		return false
	}
	if s.SelectedModelID == "" {
		return false
	}
	if s.SingleFlight && s.Loading {
		return false
	}
	return true
}

// BeginSend appends the pending user message optimistically and returns the
// request to issue. ok is false when the send preconditions do not hold, in
// which case the session is left untouched.
func (s *Session) BeginSend() (req ChatRequest, ok bool) {
	if !s.CanSend() {
		return ChatRequest{}, false
	}

	userMsg := Message{
		Role:    RoleUser,
		Content: s.PendingInput,
		Image:   s.PendingImage,
	}

	// Copy so a later append on s.Messages cannot alias the request
	transcript := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(transcript, s.Messages)
	transcript = append(transcript, userMsg)

	s.Messages = transcript
	s.local++
	s.PendingInput = ""
	s.PendingImage = ""
	s.Loading = true
	s.LastError = ""

	out := make([]Message, len(transcript))
	copy(out, transcript)

	return ChatRequest{
		Model:    s.SelectedModelID,
		Messages: out,
		Image:    userMsg.Image,
	}, true
}

// CompleteSend records the outcome of a chat request. The optimistic user
// message stays in place on failure.
func (s *Session) CompleteSend(reply Message, err error) {
	s.Loading = false
	if err != nil {
		log.Printf("[chat] send failed: %v", err)
		s.LastError = ErrTextNoResponse
		return
	}
	if reply.Role == "" {
		reply.Role = RoleAssistant
	}
	s.Messages = append(s.Messages, reply)
	s.local++
}

// ApplyClear records the outcome of a confirmed history clear
func (s *Session) ApplyClear(err error) {
	if err != nil {
		log.Printf("[chat] clear history failed: %v", err)
		s.LastError = ErrTextClearFailed
		return
	}
	s.Messages = nil
	s.local = 0
}

// DismissError drops the current banner
func (s *Session) DismissError() {
	s.LastError = ""
}

// MessageText returns the raw content of message i
func (s *Session) MessageText(i int) (string, bool) {
	if i < 0 || i >= len(s.Messages) {
		return "", false
	}
	return s.Messages[i].Content, true
}

// Load fetches models and history concurrently and applies both results.
// The fetches are independent; results are applied after both return.
func (s *Session) Load(ctx context.Context, b Backend) {
	var (
		wg         sync.WaitGroup
		models     []Model
		modelsErr  error
		history    []Message
		historyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		models, modelsErr = b.ListModels(ctx)
	}()
	go func() {
		defer wg.Done()
		history, historyErr = b.GetHistory(ctx)
	}()
	wg.Wait()

	s.ApplyModels(models, modelsErr)
	s.ApplyHistory(history, historyErr)
}

// Send runs one full send cycle against b. It returns false when the send
// was a no-op.
func (s *Session) Send(ctx context.Context, b Backend) bool {
	req, ok := s.BeginSend()
	if !ok {
		return false
	}
	reply, err := b.SendChat(ctx, req)
	s.CompleteSend(reply, err)
	return true
}

// Clear asks the backend to drop all history. Callers must have obtained
// the user's confirmation first.
func (s *Session) Clear(ctx context.Context, b Backend) {
	s.ApplyClear(b.ClearHistory(ctx))
}
