// Package server exposes the agent loop over HTTP: a synchronous JSON
// endpoint and a server-sent-events streaming endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/agent"
	"github.com/finsight/finsight/internal/provider"
)

// Server routes HTTP requests to the agent loop and selector.
type Server struct {
	loop     *agent.Loop
	selector *provider.Selector
	logger   *zap.Logger
}

// New creates a Server.
func New(loop *agent.Loop, selector *provider.Selector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{loop: loop, selector: selector, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/ask", s.handleAsk)
	mux.HandleFunc("POST /v1/ask/stream", s.handleAskStream)
	mux.HandleFunc("GET /v1/providers/test", s.handleProviderTest)
	return mux
}

// askRequest is the request body shared by both ask endpoints.
type askRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (*askRequest, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		httpError(w, http.StatusBadRequest, "question is required")
		return nil, false
	}
	if req.UserID == "" {
		req.UserID = "default"
	}
	return &req, true
}

// handleAsk runs the loop to completion and returns one JSON object.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	events := s.loop.Run(r.Context(), req.UserID, req.Question)
	result, err := agent.Collect(events)
	if err != nil {
		s.logger.Warn("ask failed", zap.String("user_id", req.UserID), zap.Error(err))
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Warn("encode ask response", zap.Error(err))
	}
}

// handleAskStream forwards each event as it is produced. The terminal
// event is always written before the connection closes, even if the
// producer panics; the loop converts its own panics into error events,
// and this boundary guards the transport itself.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}

	stream := newSSEStream(w)
	terminalSent := false
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("stream handler panicked", zap.Any("panic", rec))
			if !terminalSent {
				stream.send(agent.Event{Type: agent.EventError, Message: "an internal error occurred"})
			}
		}
	}()

	events := s.loop.Run(r.Context(), req.UserID, req.Question)
	for evt := range events {
		if err := stream.send(evt); err != nil {
			// Client went away; drain the producer so it can finish.
			s.logger.Debug("stream write failed, draining", zap.Error(err))
			for range events {
			}
			return
		}
		if evt.Terminal() {
			terminalSent = true
		}
	}
	if !terminalSent {
		stream.send(agent.Event{Type: agent.EventError, Message: "stream ended unexpectedly"})
	}
}

// handleProviderTest probes each of the user's providers with the cheap
// liveness check. Configuration testing only, never the hot path.
func (s *Server) handleProviderTest(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "default"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	adapter, cfg, err := s.selector.SelectForTools(ctx, userID)
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"provider":  adapter.Name(),
		"model":     cfg.Model,
		"available": adapter.IsAvailable(ctx),
	})
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
