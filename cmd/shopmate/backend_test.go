package main_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	main "github.com/m-mizutani/shopmate/cmd/shopmate"
	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/m-mizutani/shopmate/internal/shopping"
	"github.com/mark3labs/mcp-go/server"
)

func TestConnect(t *testing.T) {
	local := func() (*server.MCPServer, func(), error) {
		return shopping.New(catalog.NewMemoryStore()).MCPServer(), func() {}, nil
	}

	t.Run("in-process by default", func(t *testing.T) {
		client, release, err := main.Connect(t.Context(), main.NewBackend("", nil, ""), local)
		gt.NoError(t, err)
		defer release()
		gt.Equal(t, client.ServerName(), shopping.ServerName)
	})

	t.Run("url and command are exclusive", func(t *testing.T) {
		_, _, err := main.Connect(t.Context(), main.NewBackend("http://127.0.0.1:8081/sse", nil, "shopmate shopping"), local)
		gt.Error(t, err)
	})
}
