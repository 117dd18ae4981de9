// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"madlen/internal/cache"
	"madlen/internal/chat"
	"madlen/internal/db"
	"madlen/internal/events"
)

const modelsCacheKey = "models:free"

// HistoryStore persists the shared transcript
type HistoryStore interface {
	Messages(ctx context.Context) ([]db.Message, error)
	AddExchange(ctx context.Context, user, assistant db.Message) error
	CountMessages(ctx context.Context) (int, error)
	ClearMessages(ctx context.Context) error
}

// Upstream lists models and produces completions
type Upstream interface {
	ListModels(ctx context.Context) ([]chat.Model, error)
	Complete(ctx context.Context, model string, messages []chat.Message, image string) (string, error)
}

type Options struct {
	Store    HistoryStore
	Upstream Upstream
	Cache    cache.Cache   // nil disables model caching
	CacheTTL time.Duration
	Events   *events.Client // nil disables events
	Origins  []string
}

// Server is the HTTP gateway the chat client talks to
type Server struct {
	store    HistoryStore
	upstream Upstream
	cache    cache.Cache
	cacheTTL time.Duration
	events   *events.Client
	origins  []string
}

func New(opts Options) *Server {
	return &Server{
		store:    opts.Store,
		upstream: opts.Upstream,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		events:   opts.Events,
		origins:  opts.Origins,
	}
}

// Router builds the chi handler tree
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(s.origins))

	r.Get("/", s.handleRoot)
	r.Get("/models", s.handleModels)
	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleHistory)
		r.Delete("/", s.handleClearHistory)
	})
	r.Post("/chat", s.handleChat)

	return r
}
