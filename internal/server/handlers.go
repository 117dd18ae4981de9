package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"madlen/internal/cache"
	"madlen/internal/chat"
	"madlen/internal/db"
	"madlen/internal/openrouter"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: "Madlen backend ready"})
}

// handleModels serves the free model list. Upstream failures fall back to a
// static list so the client always has something to pick.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.cache != nil {
		models, err := s.cache.GetModels(ctx, modelsCacheKey)
		if err == nil {
			writeJSON(w, http.StatusOK, models)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("[server] model cache read failed: %v", err)
		}
	}

	models, err := s.upstream.ListModels(ctx)
	if err != nil {
		log.Printf("[server] listing models failed, serving fallback: %v", err)
		writeJSON(w, http.StatusOK, openrouter.FallbackModels())
		return
	}

	if s.cache != nil {
		if err := s.cache.SetModels(ctx, modelsCacheKey, models, s.cacheTTL); err != nil {
			log.Printf("[server] model cache write failed: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.Messages(r.Context())
	if err != nil {
		log.Printf("[server] reading history failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]chat.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, chat.Message{Role: m.Role, Content: m.Content, Image: m.Image})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	removed, err := s.store.CountMessages(ctx)
	if err != nil {
		log.Printf("[server] counting history failed: %v", err)
	}
	if err := s.store.ClearMessages(ctx); err != nil {
		log.Printf("[server] clearing history failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.events.HistoryCleared(removed)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "All history deleted"})
}

// handleChat forwards the transcript upstream and persists the exchange.
// Only the last user turn and the reply are stored; earlier turns are
// already in the database from previous calls.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeDetail(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	if req.Model == "" {
		writeDetail(w, http.StatusBadRequest, "model is required")
		return
	}

	ctx := r.Context()
	hasImage := req.Image != ""

	reply, err := s.upstream.Complete(ctx, req.Model, req.Messages, req.Image)
	if err != nil {
		log.Printf("[server] completion with %s failed: %v", req.Model, err)
		s.events.ChatFailed(req.Model, hasImage, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	last := req.Messages[len(req.Messages)-1]
	err = s.store.AddExchange(ctx,
		db.Message{Role: chat.RoleUser, Content: last.Content, Image: req.Image},
		db.Message{Role: chat.RoleAssistant, Content: reply},
	)
	if err != nil {
		log.Printf("[server] saving exchange failed: %v", err)
		s.events.ChatFailed(req.Model, hasImage, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.events.ChatCompleted(req.Model, hasImage, len(reply))
	writeJSON(w, http.StatusOK, chat.Message{Role: chat.RoleAssistant, Content: reply})
}
