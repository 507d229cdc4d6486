// Package server exposes the assistant as an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate/internal/assistant"
)

const DefaultAddr = "127.0.0.1:8080"

type Option func(*Server)

func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

type Server struct {
	addr      string
	assistant *assistant.Assistant
	logger    *slog.Logger
	mux       *http.ServeMux
}

func New(a *assistant.Assistant, options ...Option) *Server {
	s := &Server{
		addr:      DefaultAddr,
		assistant: a,
		logger:    slog.New(slog.DiscardHandler),
		mux:       http.NewServeMux(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	s.mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	s.mux.HandleFunc("POST /api/conversations/{id}/messages", s.handlePostMessage)
	s.mux.HandleFunc("GET /api/conversations/{id}/cart", s.handleGetCart)
	s.mux.HandleFunc("POST /api/conversations/{id}/checkout", s.handleCheckout)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.addr))
	}
	s.logger.Info("starting chat server", "addr", listener.Addr().String())

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("failed to shut down chat server", "error", err)
		}
	}()

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return goerr.Wrap(err, "server error")
	}
	return nil
}
