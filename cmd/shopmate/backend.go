package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/m-mizutani/shopmate/internal/payment"
	"github.com/m-mizutani/shopmate/internal/shopping"
	"github.com/m-mizutani/shopmate/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Sources: cli.EnvVars("SHOPMATE_DATABASE_URL"),
		Usage:   "PostgreSQL URL for the catalog, in-memory if empty",
	}
}

func paymentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "auth-secret",
			Sources: cli.EnvVars("SHOPMATE_AUTH_SECRET"),
			Usage:   "Secret to sign auth tokens, random if empty",
		},
		&cli.DurationFlag{
			Name:    "auth-token-ttl",
			Value:   payment.DefaultTokenTTL,
			Sources: cli.EnvVars("SHOPMATE_AUTH_TOKEN_TTL"),
			Usage:   "Lifetime of auth tokens",
		},
	}
}

func backendFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "shopping-url",
			Sources: cli.EnvVars("SHOPMATE_SHOPPING_URL"),
			Usage:   "SSE endpoint of a remote shopping MCP server",
		},
		&cli.StringMapFlag{
			Name:    "shopping-header",
			Sources: cli.EnvVars("SHOPMATE_SHOPPING_HEADER"),
			Usage:   "HTTP header sent to the shopping SSE server, as Name=value",
		},
		&cli.StringFlag{
			Name:    "shopping-cmd",
			Sources: cli.EnvVars("SHOPMATE_SHOPPING_CMD"),
			Usage:   "Command running a shopping MCP server over stdio",
		},
		&cli.StringFlag{
			Name:    "payment-url",
			Sources: cli.EnvVars("SHOPMATE_PAYMENT_URL"),
			Usage:   "SSE endpoint of a remote payment MCP server",
		},
		&cli.StringMapFlag{
			Name:    "payment-header",
			Sources: cli.EnvVars("SHOPMATE_PAYMENT_HEADER"),
			Usage:   "HTTP header sent to the payment SSE server, as Name=value",
		},
		&cli.StringFlag{
			Name:    "payment-cmd",
			Sources: cli.EnvVars("SHOPMATE_PAYMENT_CMD"),
			Usage:   "Command running a payment MCP server over stdio",
		},
		databaseFlag(),
	}
	return append(flags, paymentFlags()...)
}

type closers []func()

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// newCatalogStore opens Postgres when a database URL is set and seeds it
// with the demo inventory. Otherwise the catalog lives in memory.
func newCatalogStore(ctx context.Context, logger *slog.Logger, databaseURL string) (catalog.Store, func(), error) {
	if databaseURL == "" {
		return catalog.NewMemoryStore(), func() {}, nil
	}

	pool, err := catalog.Connect(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := catalog.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := store.Seed(ctx, catalog.DemoInventory()); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("using PostgreSQL catalog")
	return store, pool.Close, nil
}

func newShoppingServer(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (*server.MCPServer, func(), error) {
	store, closeStore, err := newCatalogStore(ctx, logger, cmd.String("database-url"))
	if err != nil {
		return nil, nil, err
	}
	srv := shopping.New(store, shopping.WithLogger(logger.With("server", shopping.ServerName)))
	return srv.MCPServer(), closeStore, nil
}

func newPaymentServer(cmd *cli.Command, logger *slog.Logger) (*server.MCPServer, error) {
	secret := []byte(cmd.String("auth-secret"))
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, goerr.Wrap(err, "failed to generate auth secret")
		}
		logger.Warn("no auth secret configured, tokens will not survive a restart")
	}

	users, err := payment.NewMemoryStore()
	if err != nil {
		return nil, err
	}
	svc := payment.NewService(users, payment.NewTokens(secret, cmd.Duration("auth-token-ttl")))
	srv := payment.NewServer(svc, payment.WithLogger(logger.With("server", payment.ServerName)))
	return srv.MCPServer(), nil
}

// backend is where one tool server is reached.
type backend struct {
	url     string
	headers map[string]string
	command string
}

func backendFrom(cmd *cli.Command, name string) backend {
	return backend{
		url:     cmd.String(name + "-url"),
		headers: cmd.StringMap(name + "-header"),
		command: strings.TrimSpace(cmd.String(name + "-cmd")),
	}
}

// connect picks the transport for one backend: SSE when url is set, a stdio
// subprocess when command is set, otherwise the server built in-process.
func connect(ctx context.Context, b backend, local func() (*server.MCPServer, func(), error)) (*mcp.Client, func(), error) {
	clientInfo := mcp.WithClientInfo("shopmate", "1.0.0")
	url, command := b.url, b.command

	switch {
	case url != "" && command != "":
		return nil, nil, goerr.New("URL and command are mutually exclusive", goerr.V("url", url), goerr.V("command", command))

	case url != "":
		options := []mcp.Option{clientInfo}
		if len(b.headers) > 0 {
			options = append(options, mcp.WithHeaders(b.headers))
		}
		client, err := mcp.NewSSE(ctx, url, options...)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	case command != "":
		fields := strings.Fields(command)
		client, err := mcp.NewStdio(ctx, fields[0], fields[1:], clientInfo)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil

	default:
		srv, release, err := local()
		if err != nil {
			return nil, nil, err
		}
		client, err := mcp.NewInProcess(ctx, srv, clientInfo)
		if err != nil {
			release()
			return nil, nil, err
		}
		return client, func() { _ = client.Close(); release() }, nil
	}
}

// newBackends connects the shopping and payment tool sets.
func newBackends(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (*mcp.Client, *mcp.Client, func(), error) {
	var cleanup closers

	shop, closeShop, err := connect(ctx, backendFrom(cmd, "shopping"), func() (*server.MCPServer, func(), error) {
		return newShoppingServer(ctx, cmd, logger)
	})
	if err != nil {
		return nil, nil, nil, goerr.Wrap(err, "failed to connect shopping server")
	}
	cleanup = append(cleanup, closeShop)

	pay, closePay, err := connect(ctx, backendFrom(cmd, "payment"), func() (*server.MCPServer, func(), error) {
		srv, err := newPaymentServer(cmd, logger)
		return srv, func() {}, err
	})
	if err != nil {
		cleanup.close()
		return nil, nil, nil, goerr.Wrap(err, "failed to connect payment server")
	}
	cleanup = append(cleanup, closePay)

	logger.Info("backends connected", "shopping", shop.ServerName(), "payment", pay.ServerName())
	return shop, pay, cleanup.close, nil
}

func ttlFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "conversation-ttl",
		Value:   30 * time.Minute,
		Sources: cli.EnvVars("SHOPMATE_CONVERSATION_TTL"),
		Usage:   "Idle time before a conversation is dropped, 0 keeps them forever",
	}
}
