package payment

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/shopmate/internal/mcpserver"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "payment"
	ServerVersion = "0.1.0"
)

type Server struct {
	svc    *Service
	logger *slog.Logger
	mcp    *server.MCPServer
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer exposes svc as the payment MCP server.
func NewServer(svc *Service, options ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
		mcp:    server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(true)),
	}
	for _, opt := range options {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

var visibleErrors = []error{
	ErrUserNotFound,
	ErrAuthFailed,
	ErrInvalidToken,
	ErrEmptyCart,
	ErrInvalidCart,
	ErrInvalidAddress,
	ErrPaymentMethodNotFound,
	ErrAddressNotFound,
	ErrPaymentDeclined,
}

func (s *Server) add(tool mcp.Tool, fn mcpserver.HandlerFunc) {
	s.mcp.AddTool(tool, mcpserver.Handler(s.logger, tool.Name, fn, visibleErrors...))
}

func withToken() mcp.ToolOption {
	return mcp.WithString("auth_token", mcp.Required(), mcp.Description("Token returned by authenticate_user"))
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool("verify_email",
		mcp.WithDescription("Check if a user email exists in the database."),
		mcp.WithString("email", mcp.Required(), mcp.Description("The email address to verify")),
	), s.verifyEmail)

	s.add(mcp.NewTool("authenticate_user",
		mcp.WithDescription("Authenticate a user by user ID or email and password."),
		mcp.WithString("identifier", mcp.Required(), mcp.Description("The user ID or email address")),
		mcp.WithString("password", mcp.Required(), mcp.Description("The user's password")),
	), s.authenticateUser)

	s.add(mcp.NewTool("get_user_wallet",
		mcp.WithDescription("Get the authenticated user's saved payment methods."),
		withToken(),
	), s.getUserWallet)

	s.add(mcp.NewTool("get_user_addresses",
		mcp.WithDescription("Get the authenticated user's saved addresses."),
		withToken(),
	), s.getUserAddresses)

	s.add(mcp.NewTool("save_address",
		mcp.WithDescription("Save a new address for the authenticated user."),
		withToken(),
		mcp.WithString("type", mcp.Required(), mcp.Enum(string(AddressShipping), string(AddressBilling)), mcp.Description("Address type")),
		mcp.WithString("street", mcp.Required(), mcp.Description("Street address")),
		mcp.WithString("city", mcp.Required(), mcp.Description("City")),
		mcp.WithString("state", mcp.Required(), mcp.Description("State")),
		mcp.WithString("zip", mcp.Required(), mcp.Description("ZIP code")),
	), s.saveAddress)

	s.add(mcp.NewTool("complete_checkout",
		mcp.WithDescription("Process the final payment for the cart."),
		withToken(),
		mcp.WithArray("cart", mcp.Required(), mcp.Description("List of items in the cart"), mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_id":  map[string]any{"type": "string"},
				"name":     map[string]any{"type": "string"},
				"price":    map[string]any{"type": "number", "minimum": 0},
				"quantity": map[string]any{"type": "integer", "minimum": 1},
			},
			"required": []string{"item_id", "price", "quantity"},
		})),
		mcp.WithString("payment_method_id", mcp.Required(), mcp.Description("ID of the payment method to use")),
		mcp.WithString("address_id", mcp.Required(), mcp.Description("ID of the shipping address")),
	), s.completeCheckout)

	s.add(mcp.NewTool("get_order_history",
		mcp.WithDescription("List the authenticated user's completed transactions."),
		withToken(),
	), s.getOrderHistory)
}

func (s *Server) verifyEmail(ctx context.Context, args mcpserver.Args) (any, error) {
	email, err := args.String("email")
	if err != nil {
		return nil, err
	}
	exists, err := s.svc.VerifyEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return map[string]bool{"exists": exists}, nil
}

func (s *Server) authenticateUser(ctx context.Context, args mcpserver.Args) (any, error) {
	identifier, err := args.String("identifier")
	if err != nil {
		return nil, err
	}
	password, err := args.String("password")
	if err != nil {
		return nil, err
	}

	result, err := s.svc.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user authenticated", "user_id", result.UserID)
	return result, nil
}

func (s *Server) getUserWallet(ctx context.Context, args mcpserver.Args) (any, error) {
	token, err := args.String("auth_token")
	if err != nil {
		return nil, err
	}
	return s.svc.Wallet(ctx, token)
}

func (s *Server) getUserAddresses(ctx context.Context, args mcpserver.Args) (any, error) {
	token, err := args.String("auth_token")
	if err != nil {
		return nil, err
	}
	return s.svc.Addresses(ctx, token)
}

func (s *Server) saveAddress(ctx context.Context, args mcpserver.Args) (any, error) {
	token, err := args.String("auth_token")
	if err != nil {
		return nil, err
	}

	var addr Address
	fields := map[string]*string{"street": &addr.Street, "city": &addr.City, "state": &addr.State, "zip": &addr.Zip}
	for name, dst := range fields {
		if *dst, err = args.String(name); err != nil {
			return nil, err
		}
	}
	addrType, err := args.String("type")
	if err != nil {
		return nil, err
	}
	addr.Type = AddressType(addrType)

	return s.svc.SaveAddress(ctx, token, addr)
}

func (s *Server) completeCheckout(ctx context.Context, args mcpserver.Args) (any, error) {
	token, err := args.String("auth_token")
	if err != nil {
		return nil, err
	}
	var lines []CartLine
	if err := args.Decode("cart", &lines); err != nil {
		return nil, err
	}
	paymentMethodID, err := args.String("payment_method_id")
	if err != nil {
		return nil, err
	}
	addressID, err := args.String("address_id")
	if err != nil {
		return nil, err
	}

	tx, err := s.svc.CompleteCheckout(ctx, token, lines, paymentMethodID, addressID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout completed", "tx_id", tx.ID, "user_id", tx.UserID, "amount", tx.Amount)
	return tx, nil
}

func (s *Server) getOrderHistory(ctx context.Context, args mcpserver.Args) (any, error) {
	token, err := args.String("auth_token")
	if err != nil {
		return nil, err
	}
	return s.svc.Transactions(ctx, token)
}
