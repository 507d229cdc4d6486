package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/m-mizutani/shopmate/internal/assistant"
)

const maxRequestBody = 64 * 1024

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, apiError{Error: msg})
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) (*assistant.Conversation, bool) {
	conv, err := s.assistant.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "conversation not found")
		return nil, false
	}
	return conv, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createConversationResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	conv := s.assistant.Start(r.Context())
	s.writeJSON(w, http.StatusCreated, createConversationResponse{ID: conv.ID()})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, conv.State())
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.assistant.Delete(r.Context(), id); err != nil {
		if errors.Is(err, assistant.ErrConversationNotFound) {
			s.writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		s.logger.Error("failed to delete conversation", "error", err, "conversation_id", id)
		s.writeError(w, http.StatusInternalServerError, "failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type postMessageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := conv.Send(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("failed to handle message", "error", err, "conversation_id", conv.ID())
		s.writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	cart, err := conv.Cart(r.Context())
	if err != nil {
		s.logger.Error("failed to get cart", "error", err, "conversation_id", conv.ID())
		s.writeError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}
	s.writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.conversation(w, r)
	if !ok {
		return
	}

	reply, err := conv.StartCheckout(r.Context())
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyCart) {
			s.writeError(w, http.StatusBadRequest, "cart is empty")
			return
		}
		s.logger.Error("failed to start checkout", "error", err, "conversation_id", conv.ID())
		s.writeError(w, http.StatusInternalServerError, "failed to start checkout")
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}
