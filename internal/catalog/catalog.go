package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrNotInCart         = errors.New("item not in cart")
	ErrInvalidCartID     = errors.New("invalid cart id")
)

// Error is a catalog failure whose message can be shown to the shopper as is.
// Kind is one of the Err* sentinels above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func itemNotFound(id string) error {
	return &Error{Kind: ErrItemNotFound, Message: fmt.Sprintf("Item %s not found", id)}
}

func insufficientStock(available int) error {
	return &Error{Kind: ErrInsufficientStock, Message: fmt.Sprintf("Not enough stock. Available: %d", available)}
}

func notInCart(id string) error {
	return &Error{Kind: ErrNotInCart, Message: fmt.Sprintf("Item %s is not in the cart", id)}
}

func validateCartRequest(cartID string, quantity int) error {
	if cartID == "" {
		return &Error{Kind: ErrInvalidCartID, Message: "Cart ID is required"}
	}
	if quantity < 1 {
		return &Error{Kind: ErrInvalidQuantity, Message: fmt.Sprintf("Quantity must be at least 1, got %d", quantity)}
	}
	return nil
}

type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Stock       int      `json:"stock"`
	Colors      []string `json:"colors,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
}

type CartItem struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

func newCartItem(p Product, quantity int) CartItem {
	return CartItem{
		ItemID:      p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    quantity,
		Category:    p.Category,
		Description: p.Description,
	}
}

type Cart struct {
	ID    string     `json:"cart_id"`
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// NewCart builds a cart and computes its total rounded to cents.
func NewCart(id string, items []CartItem) *Cart {
	if items == nil {
		items = []CartItem{}
	}
	return &Cart{
		ID:    id,
		Items: items,
		Total: CartTotal(items),
	}
}

// CartTotal returns sum(price * quantity) rounded to cents.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return math.Round(total*100) / 100
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

type Availability struct {
	Name       string `json:"name"`
	InStock    bool   `json:"in_stock"`
	StockCount int    `json:"stock_count"`
}

// Store is the product catalog plus the carts that reference it.
type Store interface {
	ListItems(ctx context.Context) ([]Product, error)
	GetItem(ctx context.Context, id string) (*Product, error)
	// SearchItems matches query against name or category, case-insensitively.
	SearchItems(ctx context.Context, query string) ([]Product, error)
	ItemsByCategory(ctx context.Context, category string) ([]Product, error)
	Categories(ctx context.Context) ([]string, error)
	Availability(ctx context.Context, id string) (*Availability, error)

	// AddToCart merges quantity into an existing line for the same item.
	AddToCart(ctx context.Context, cartID, itemID string, quantity int) (*Cart, error)
	RemoveFromCart(ctx context.Context, cartID, itemID string) (*Cart, error)
	GetCart(ctx context.Context, cartID string) (*Cart, error)
	ClearCart(ctx context.Context, cartID string) error
}
