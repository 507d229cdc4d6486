package mcpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mark3labs/mcp-go/server"
)

// ServeStdio serves srv on stdin/stdout until ctx is cancelled or stdin closes.
func ServeStdio(ctx context.Context, srv *server.MCPServer) error {
	stdio := server.NewStdioServer(srv)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return goerr.Wrap(err, "stdio server stopped")
	}
	return nil
}

// ServeSSE serves srv over HTTP SSE on addr until ctx is cancelled. baseURL is
// the externally visible URL clients use to reach the message endpoint.
func ServeSSE(ctx context.Context, logger *slog.Logger, srv *server.MCPServer, addr, baseURL string) error {
	sse := server.NewSSEServer(srv, server.WithBaseURL(baseURL))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting MCP SSE server", "addr", addr, "base_url", baseURL)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "SSE server stopped", goerr.V("addr", addr))
		}
		return nil

	case <-ctx.Done():
		logger.Info("shutting down MCP SSE server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shutdown SSE server")
		}
		return nil
	}
}
