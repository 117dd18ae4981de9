package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madlen/internal/chat"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		APIKey:  "sk-test",
		BaseURL: url,
		Referer: "http://localhost:5173",
		Title:   "Madlen AI",
		Retry:   fastRetry(),
		Timeout: 5 * time.Second,
	})
}

const modelsPayload = `{"data":[
	{"id":"z-ai/paid","name":"Zeta Paid","pricing":{"prompt":"0.000002","completion":"0.000004"}},
	{"id":"meta-llama/llama-3-8b-instruct:free","name":"Llama 3 (Free)","pricing":{"prompt":"0.1","completion":"0.1"}},
	{"id":"openai/gpt-4o-mini","name":"GPT-4o mini","pricing":{"prompt":"0","completion":"0"}},
	{"id":"acme/seer","name":"Acme Seer","architecture":{"modality":"text+image->text"},"pricing":{"prompt":"0","completion":"0"}},
	{"id":"acme/broken","name":"Broken","pricing":{"prompt":"n/a","completion":"0"}},
	{"id":"acme/nopricing","name":"No Pricing"}
]}`

func TestListModels_FiltersAndSorts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(modelsPayload))
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []chat.Model{
		{ID: "acme/seer", Name: "Acme Seer", SupportsVision: true},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini", SupportsVision: true},
		{ID: "meta-llama/llama-3-8b-instruct:free", Name: "Llama 3 (Free)"},
	}, models)
}

func TestListModels_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSupportsVision(t *testing.T) {
	tests := []struct {
		name string
		m    apiModel
		want bool
	}{
		{"modality image", apiModel{ID: "a/b", Architecture: struct {
			Modality string `json:"modality"`
		}{Modality: "text+image->text"}}, true},
		{"id keyword claude-3", apiModel{ID: "anthropic/claude-3-haiku"}, true},
		{"id keyword gemini-1.5", apiModel{ID: "google/gemini-1.5-flash"}, true},
		{"name vision", apiModel{ID: "x/y", Name: "Llama 3.2 Vision"}, true},
		{"plain text", apiModel{ID: "mistral/7b", Name: "Mistral 7B"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, supportsVision(tt.m))
		})
	}
}

func TestBuildMessages(t *testing.T) {
	history := []chat.Message{
		{Role: "user", Content: "first", Image: "data:image/png;base64,OLD"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "what is this?"},
	}

	t.Run("text only", func(t *testing.T) {
		out := BuildMessages(history, "")
		require.Len(t, out, 3)
		assert.Equal(t, "first", out[0].Content, "earlier images are dropped")
		assert.Equal(t, "what is this?", out[2].Content)
	})

	t.Run("with image", func(t *testing.T) {
		out := BuildMessages(history, "data:image/png;base64,NEW")
		require.Len(t, out, 3)

		parts, ok := out[2].Content.([]contentPart)
		require.True(t, ok)
		require.Len(t, parts, 2)
		assert.Equal(t, contentPart{Type: "text", Text: "what is this?"}, parts[0])
		assert.Equal(t, "image_url", parts[1].Type)
		assert.Equal(t, "data:image/png;base64,NEW", parts[1].ImageURL.URL)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, BuildMessages(nil, ""))
	})
}

func TestComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "http://localhost:5173", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Madlen AI", r.Header.Get("X-Title"))

		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Complete(context.Background(), "x",
		[]chat.Message{{Role: "user", Content: "hi"}}, "data:image/png;base64,AA==")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)

	assert.Equal(t, "x", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	assert.Len(t, content, 2)
}

func TestComplete_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NotEmpty(t, raw, "body replayed on every attempt")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"finally"}}]}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Complete(context.Background(), "x",
		[]chat.Message{{Role: "user", Content: "hi"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "finally", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Complete(context.Background(), "x",
		[]chat.Message{{Role: "user", Content: "hi"}}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimit))
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"client error", http.StatusBadRequest, `{"error":{"message":"bad model"}}`, "400"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"error body", http.StatusOK, `{"error":{"message":"provider down","code":502}}`, "provider down"},
		{"bad json", http.StatusOK, `not json`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Complete(context.Background(), "x",
				[]chat.Message{{Role: "user", Content: "hi"}}, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestComplete_NoMessages(t *testing.T) {
	_, err := newTestClient("http://unused.invalid").Complete(context.Background(), "x", nil, "")
	assert.Error(t, err)
}

func TestFallbackModels(t *testing.T) {
	models := FallbackModels()
	require.Len(t, models, 2)
	assert.Equal(t, "google/gemma-2-9b-it:free", models[0].ID)
}
