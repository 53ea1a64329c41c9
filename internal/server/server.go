// Package server exposes the controller and the analytics read-model over
// HTTP. It is a thin host: all conversation rules live in the controller and
// the store.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qubitlabs/concierge/internal/controller"
	"github.com/qubitlabs/concierge/internal/logger"
	"github.com/qubitlabs/concierge/internal/store"
)

var log = logger.Component("server")

// Server hosts one widget instance and the analytics surface.
type Server struct {
	controller *controller.Controller
	store      *store.Store
}

// New builds a Server over an already-wired controller and store.
func New(c *controller.Controller, s *store.Store) *Server {
	return &Server{controller: c, store: s}
}

// Router returns the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Post("/chat/open", s.handleOpen)
	r.Post("/chat/message", s.handleMessage)
	r.Post("/chat/prompt/{choice}", s.handlePromptChoice)
	r.Post("/chat/quick-action", s.handleQuickAction)
	r.Post("/chat/close", s.handleClose)
	r.Get("/chat/history/{conversationID}", s.handleHistory)

	r.Get("/analytics/summaries", s.handleSummaries)
	r.Get("/analytics/search", s.handleSearch)
	r.Get("/analytics/stats", s.handleStats)

	return r
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply         string `json:"reply"`
	PromptVisible bool   `json:"prompt_visible"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Open(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": s.store.ConversationID(),
		"session_id":      s.store.SessionID(),
		"messages":        s.controller.Transcript(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := s.controller.Send(r.Context(), req.Message)
	switch {
	case errors.Is(err, controller.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, controller.ErrTurnInFlight), errors.Is(err, controller.ErrClosed):
		writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Reply:         reply,
		PromptVisible: s.controller.PromptVisible(),
	})
}

func (s *Server) handlePromptChoice(w http.ResponseWriter, r *http.Request) {
	choice := controller.PromptChoice(chi.URLParam(r, "choice"))
	if err := s.controller.ResolvePrompt(r.Context(), choice); err != nil {
		if errors.Is(err, controller.ErrNoPrompt) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": s.controller.Transcript(),
	})
}

func (s *Server) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeError(w, http.StatusBadRequest, errors.New("action is required"))
		return
	}
	s.controller.RecordQuickAction(req.Action)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.controller.Close(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.store.History(chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.Summaries(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": summaries})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, errors.New("query parameter q is required"))
		return
	}
	messages, err := s.store.Search(term, r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
