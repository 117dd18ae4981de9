package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madlen/internal/cache"
	"madlen/internal/chat"
	"madlen/internal/db"
	"madlen/internal/events"
)

type fakeStore struct {
	mu       sync.Mutex
	messages []db.Message
	err      error
}

func (f *fakeStore) Messages(ctx context.Context) ([]db.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]db.Message(nil), f.messages...), nil
}

func (f *fakeStore) AddExchange(ctx context.Context, user, assistant db.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, user, assistant)
	return nil
}

func (f *fakeStore) CountMessages(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages), f.err
}

func (f *fakeStore) ClearMessages(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = nil
	return nil
}

type fakeUpstream struct {
	models     []chat.Model
	listErr    error
	listCalls  int
	reply      string
	completeEr error

	gotModel    string
	gotMessages []chat.Message
	gotImage    string
}

func (f *fakeUpstream) ListModels(ctx context.Context) ([]chat.Model, error) {
	f.listCalls++
	return f.models, f.listErr
}

func (f *fakeUpstream) Complete(ctx context.Context, model string, messages []chat.Message, image string) (string, error) {
	f.gotModel, f.gotMessages, f.gotImage = model, messages, image
	return f.reply, f.completeEr
}

func newTestServer(store *fakeStore, up *fakeUpstream, opts ...func(*Options)) *httptest.Server {
	o := Options{Store: store, Upstream: up}
	for _, fn := range opts {
		fn(&o)
	}
	srv := httptest.NewServer(New(o).Router())
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func TestRoot(t *testing.T) {
	srv := newTestServer(&fakeStore{}, &fakeUpstream{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","message":"Madlen backend ready"}`, string(body))
}

func TestModels(t *testing.T) {
	up := &fakeUpstream{models: []chat.Model{{ID: "a", Name: "A", SupportsVision: true}}}
	srv := newTestServer(&fakeStore{}, up)
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/models", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":"a","name":"A","supports_vision":true}]`, string(body))
}

func TestModels_FallbackOnUpstreamError(t *testing.T) {
	up := &fakeUpstream{listErr: errors.New("boom")}
	srv := newTestServer(&fakeStore{}, up)
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/models", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var models []chat.Model
	require.NoError(t, json.Unmarshal(body, &models))
	require.Len(t, models, 2)
	assert.Equal(t, "google/gemma-2-9b-it:free", models[0].ID)
	assert.Equal(t, "meta-llama/llama-3-8b-instruct:free", models[1].ID)
}

func TestModels_Cached(t *testing.T) {
	up := &fakeUpstream{models: []chat.Model{{ID: "a", Name: "A"}}}
	mem := cache.NewMemory()
	srv := newTestServer(&fakeStore{}, up, func(o *Options) {
		o.Cache = mem
		o.CacheTTL = time.Minute
	})
	defer srv.Close()

	do(t, http.MethodGet, srv.URL+"/models", "")
	_, body := do(t, http.MethodGet, srv.URL+"/models", "")

	assert.Equal(t, 1, up.listCalls, "second call served from cache")
	assert.JSONEq(t, `[{"id":"a","name":"A"}]`, string(body))
}

func TestModels_FallbackNotCached(t *testing.T) {
	up := &fakeUpstream{listErr: errors.New("boom")}
	mem := cache.NewMemory()
	srv := newTestServer(&fakeStore{}, up, func(o *Options) {
		o.Cache = mem
		o.CacheTTL = time.Minute
	})
	defer srv.Close()

	do(t, http.MethodGet, srv.URL+"/models", "")
	do(t, http.MethodGet, srv.URL+"/models", "")
	assert.Equal(t, 2, up.listCalls)
}

func TestHistory(t *testing.T) {
	store := &fakeStore{messages: []db.Message{
		{ID: 1, Role: "user", Content: "hi", Image: "data:image/png;base64,AA=="},
		{ID: 2, Role: "assistant", Content: "hello"},
	}}
	srv := newTestServer(store, &fakeUpstream{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[
		{"role":"user","content":"hi","image":"data:image/png;base64,AA=="},
		{"role":"assistant","content":"hello"}
	]`, string(body))
}

func TestHistory_EmptyIsArray(t *testing.T) {
	srv := newTestServer(&fakeStore{}, &fakeUpstream{})
	defer srv.Close()

	_, body := do(t, http.MethodGet, srv.URL+"/history", "")
	assert.JSONEq(t, `[]`, string(body))
}

func TestHistory_StoreError(t *testing.T) {
	srv := newTestServer(&fakeStore{err: errors.New("disk gone")}, &fakeUpstream{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/history", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"disk gone"}`, string(body))
}

func TestClearHistory(t *testing.T) {
	store := &fakeStore{messages: []db.Message{{Role: "user", Content: "x"}}}
	srv := newTestServer(store, &fakeUpstream{})
	defer srv.Close()

	resp, body := do(t, http.MethodDelete, srv.URL+"/history", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","message":"All history deleted"}`, string(body))
	assert.Empty(t, store.messages)
}

func TestClearHistory_Error(t *testing.T) {
	srv := newTestServer(&fakeStore{err: errors.New("locked")}, &fakeUpstream{})
	defer srv.Close()

	resp, _ := do(t, http.MethodDelete, srv.URL+"/history", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestChat(t *testing.T) {
	store := &fakeStore{}
	up := &fakeUpstream{reply: "hello"}
	srv := newTestServer(store, up)
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/chat", `{
		"model":"x",
		"messages":[{"role":"user","content":"earlier"},{"role":"assistant","content":"ok"},{"role":"user","content":"hi"}],
		"image":"data:image/png;base64,AA=="
	}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"role":"assistant","content":"hello"}`, string(body))

	assert.Equal(t, "x", up.gotModel)
	assert.Len(t, up.gotMessages, 3)
	assert.Equal(t, "data:image/png;base64,AA==", up.gotImage)

	require.Len(t, store.messages, 2, "only the new exchange is stored")
	assert.Equal(t, db.Message{Role: "user", Content: "hi", Image: "data:image/png;base64,AA=="}, store.messages[0])
	assert.Equal(t, db.Message{Role: "assistant", Content: "hello"}, store.messages[1])
}

func TestChat_UpstreamFailure(t *testing.T) {
	store := &fakeStore{}
	up := &fakeUpstream{completeEr: errors.New("API error 502: bad gateway")}
	srv := newTestServer(store, up)
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/chat",
		`{"model":"x","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"API error 502: bad gateway"}`, string(body))
	assert.Empty(t, store.messages, "failed exchanges are not persisted")
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"no messages", `{"model":"x","messages":[]}`},
		{"no model", `{"messages":[{"role":"user","content":"hi"}]}`},
	}

	srv := newTestServer(&fakeStore{}, &fakeUpstream{reply: "unused"})
	defer srv.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), `"detail"`)
		})
	}
}

func TestChat_EmitsEvent(t *testing.T) {
	got := make(chan events.Event, 1)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev events.Event
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		got <- ev
	}))
	defer collector.Close()

	srv := newTestServer(&fakeStore{}, &fakeUpstream{reply: "hello"}, func(o *Options) {
		o.Events = events.NewClient(collector.URL)
	})
	defer srv.Close()

	do(t, http.MethodPost, srv.URL+"/chat",
		`{"model":"x","messages":[{"role":"user","content":"hi"}],"image":"data:image/png;base64,AA=="}`)

	select {
	case ev := <-got:
		assert.Equal(t, events.EventChatCompleted, ev.Type)
		assert.Equal(t, "x", ev.Data["model"])
		assert.Equal(t, "true", ev.Data["has_image"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestCORS(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeUpstream{})
		defer srv.Close()

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeUpstream{}, func(o *Options) {
			o.Origins = []string{"http://localhost:5173"}
		})
		defer srv.Close()

		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, &fakeUpstream{}, func(o *Options) {
			o.Origins = []string{"http://localhost:5173"}
		})
		defer srv.Close()

		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
		req.Header.Set("Origin", "http://evil.example")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
