// internal/server/server.go
// Package server exposes the webhook endpoints the platform gateway delivers
// events to.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"gatekeeper/internal/chat"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/router"
)

type Server struct {
	router *router.Router
	logger logger.Logger
}

func New(r *router.Router, log logger.Logger) *Server {
	return &Server{
		router: r,
		logger: log.WithFields(map[string]interface{}{"component": "server"}),
	}
}

// Handler returns the webhook mux: one endpoint per gateway event kind.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/interaction", s.handleInteraction)
	mux.HandleFunc("/events/message", s.handleMessage)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev chat.InteractionEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.logger.Warn("malformed interaction payload", map[string]interface{}{"error": err})
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	s.router.HandleInteraction(r.Context(), ev)
	writeAccepted(w)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev chat.MessageEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.logger.Warn("malformed message payload", map[string]interface{}{"error": err})
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	s.router.HandleMessage(r.Context(), ev)
	writeAccepted(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeAccepted(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
