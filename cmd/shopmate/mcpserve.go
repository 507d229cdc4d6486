package main

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate/internal/mcpserver"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
)

func transportFlags(prefix string, defaultAddr string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "transport",
			Value:   "stdio",
			Sources: cli.EnvVars(prefix + "_TRANSPORT"),
			Usage:   "MCP transport (stdio, sse)",
		},
		&cli.StringFlag{
			Name:    "addr",
			Value:   defaultAddr,
			Sources: cli.EnvVars(prefix + "_ADDR"),
			Usage:   "Listen address for the SSE transport",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Sources: cli.EnvVars(prefix + "_BASE_URL"),
			Usage:   "Public URL of the SSE server, http://<addr> if empty",
		},
	}
}

func serveMCP(ctx context.Context, cmd *cli.Command, logger *slog.Logger, srv *server.MCPServer) error {
	switch transport := cmd.String("transport"); transport {
	case "stdio":
		return mcpserver.ServeStdio(ctx, srv)
	case "sse":
		addr := cmd.String("addr")
		baseURL := cmd.String("base-url")
		if baseURL == "" {
			baseURL = "http://" + addr
		}
		return mcpserver.ServeSSE(ctx, logger, srv, addr, baseURL)
	default:
		return goerr.New("unknown transport", goerr.V("transport", transport))
	}
}

func shoppingCommand() *cli.Command {
	return &cli.Command{
		Name:  "shopping",
		Usage: "Run the shopping MCP server",
		Flags: append(transportFlags("SHOPMATE_SHOPPING", "127.0.0.1:8081"), databaseFlag()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srv, release, err := newShoppingServer(ctx, cmd, slog.Default())
			if err != nil {
				return err
			}
			defer release()
			return serveMCP(ctx, cmd, slog.Default(), srv)
		},
	}
}

func paymentCommand() *cli.Command {
	return &cli.Command{
		Name:  "payment",
		Usage: "Run the payment MCP server",
		Flags: append(transportFlags("SHOPMATE_PAYMENT", "127.0.0.1:8082"), paymentFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			srv, err := newPaymentServer(cmd, slog.Default())
			if err != nil {
				return err
			}
			return serveMCP(ctx, cmd, slog.Default(), srv)
		},
	}
}
