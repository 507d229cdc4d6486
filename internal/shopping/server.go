// Package shopping serves the product catalog and carts as MCP tools.
package shopping

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/m-mizutani/shopmate/internal/mcpserver"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "shopping"
	ServerVersion = "0.1.0"
)

type Server struct {
	store  catalog.Store
	logger *slog.Logger
	mcp    *server.MCPServer
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New builds the shopping MCP server on top of store.
func New(store catalog.Store, options ...Option) *Server {
	s := &Server{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		mcp:    server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(true)),
	}
	for _, opt := range options {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server for in-process clients and transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

var visibleErrors = []error{
	catalog.ErrItemNotFound,
	catalog.ErrInsufficientStock,
	catalog.ErrInvalidQuantity,
	catalog.ErrNotInCart,
	catalog.ErrInvalidCartID,
}

func (s *Server) add(tool mcp.Tool, fn mcpserver.HandlerFunc) {
	s.mcp.AddTool(tool, mcpserver.Handler(s.logger, tool.Name, fn, visibleErrors...))
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool("list_items",
		mcp.WithDescription("List all available items in the inventory."),
	), s.listItems)

	s.add(mcp.NewTool("get_item",
		mcp.WithDescription("Get details of a specific item."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to retrieve")),
	), s.getItem)

	s.add(mcp.NewTool("search_items",
		mcp.WithDescription("Search for items by name or category."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query string")),
	), s.searchItems)

	s.add(mcp.NewTool("get_items_by_category",
		mcp.WithDescription("Get all items in a specific category."),
		mcp.WithString("category", mcp.Required(), mcp.Description("The category to filter by")),
	), s.getItemsByCategory)

	s.add(mcp.NewTool("get_categories",
		mcp.WithDescription("Get all available product categories."),
	), s.getCategories)

	s.add(mcp.NewTool("get_item_availability",
		mcp.WithDescription("Check if an item is in stock."),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to check")),
	), s.getItemAvailability)

	s.add(mcp.NewTool("add_to_cart",
		mcp.WithDescription("Add an item to the shopping cart."),
		mcp.WithString("cart_id", mcp.Required(), mcp.Description("The ID of the cart")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to add")),
		mcp.WithNumber("quantity", mcp.Description("Number of items to add (default: 1)"), mcp.DefaultNumber(1), mcp.Min(1)),
	), s.addToCart)

	s.add(mcp.NewTool("remove_from_cart",
		mcp.WithDescription("Remove an item from the shopping cart."),
		mcp.WithString("cart_id", mcp.Required(), mcp.Description("The ID of the cart")),
		mcp.WithString("item_id", mcp.Required(), mcp.Description("The ID of the item to remove")),
	), s.removeFromCart)

	s.add(mcp.NewTool("get_cart",
		mcp.WithDescription("Get the current shopping cart with its total."),
		mcp.WithString("cart_id", mcp.Required(), mcp.Description("The ID of the cart")),
	), s.getCart)

	s.add(mcp.NewTool("clear_cart",
		mcp.WithDescription("Remove every item from the shopping cart."),
		mcp.WithString("cart_id", mcp.Required(), mcp.Description("The ID of the cart")),
	), s.clearCart)
}

func (s *Server) listItems(ctx context.Context, args mcpserver.Args) (any, error) {
	return s.store.ListItems(ctx)
}

func (s *Server) getItem(ctx context.Context, args mcpserver.Args) (any, error) {
	id, err := args.String("item_id")
	if err != nil {
		return nil, err
	}
	return s.store.GetItem(ctx, id)
}

func (s *Server) searchItems(ctx context.Context, args mcpserver.Args) (any, error) {
	query, err := args.String("query")
	if err != nil {
		return nil, err
	}
	return s.store.SearchItems(ctx, query)
}

func (s *Server) getItemsByCategory(ctx context.Context, args mcpserver.Args) (any, error) {
	category, err := args.String("category")
	if err != nil {
		return nil, err
	}
	return s.store.ItemsByCategory(ctx, category)
}

func (s *Server) getCategories(ctx context.Context, args mcpserver.Args) (any, error) {
	return s.store.Categories(ctx)
}

func (s *Server) getItemAvailability(ctx context.Context, args mcpserver.Args) (any, error) {
	id, err := args.String("item_id")
	if err != nil {
		return nil, err
	}
	return s.store.Availability(ctx, id)
}

type cartResult struct {
	Message string        `json:"message"`
	Cart    *catalog.Cart `json:"cart"`
}

func (s *Server) addToCart(ctx context.Context, args mcpserver.Args) (any, error) {
	cartID, err := args.String("cart_id")
	if err != nil {
		return nil, err
	}
	itemID, err := args.String("item_id")
	if err != nil {
		return nil, err
	}
	quantity, err := args.Int("quantity", 1)
	if err != nil {
		return nil, err
	}

	cart, err := s.store.AddToCart(ctx, cartID, itemID, quantity)
	if err != nil {
		return nil, err
	}

	name := itemID
	for _, line := range cart.Items {
		if line.ItemID == itemID {
			name = line.Name
		}
	}
	s.logger.Info("item added to cart", "cart_id", cartID, "item_id", itemID, "quantity", quantity)

	return &cartResult{Message: "Added " + name + " to cart", Cart: cart}, nil
}

func (s *Server) removeFromCart(ctx context.Context, args mcpserver.Args) (any, error) {
	cartID, err := args.String("cart_id")
	if err != nil {
		return nil, err
	}
	itemID, err := args.String("item_id")
	if err != nil {
		return nil, err
	}

	cart, err := s.store.RemoveFromCart(ctx, cartID, itemID)
	if err != nil {
		return nil, err
	}
	return &cartResult{Message: "Removed item " + itemID + " from cart", Cart: cart}, nil
}

func (s *Server) getCart(ctx context.Context, args mcpserver.Args) (any, error) {
	cartID, err := args.String("cart_id")
	if err != nil {
		return nil, err
	}
	return s.store.GetCart(ctx, cartID)
}

func (s *Server) clearCart(ctx context.Context, args mcpserver.Args) (any, error) {
	cartID, err := args.String("cart_id")
	if err != nil {
		return nil, err
	}
	if err := s.store.ClearCart(ctx, cartID); err != nil {
		return nil, err
	}
	return &cartResult{Message: "Cart cleared", Cart: catalog.NewCart(cartID, nil)}, nil
}
