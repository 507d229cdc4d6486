package shopping_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/m-mizutani/shopmate/internal/shopping"
	"github.com/m-mizutani/shopmate/mcp"
)

func newClient(t *testing.T) *mcp.Client {
	t.Helper()
	srv := shopping.New(catalog.NewMemoryStore())
	client, err := mcp.NewInProcess(t.Context(), srv.MCPServer())
	gt.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTools(t *testing.T) {
	client := newClient(t)

	specs, err := client.Specs(t.Context())
	gt.NoError(t, err)

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	for _, name := range []string{
		"list_items", "get_item", "search_items", "get_items_by_category", "get_categories",
		"get_item_availability", "add_to_cart", "remove_from_cart", "get_cart", "clear_cart",
	} {
		gt.A(t, names).Has(name)
	}
}

func TestCatalogTools(t *testing.T) {
	client := newClient(t)

	t.Run("list_items", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "list_items", nil)
		gt.NoError(t, err)
		items := resp["result"].([]any)
		gt.A(t, items).Length(10)
	})

	t.Run("get_item", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "get_item", map[string]any{"item_id": "8"})
		gt.NoError(t, err)
		gt.Equal(t, resp["name"], "Sunglasses")
		gt.Equal(t, resp["price"], any(89.99))
	})

	t.Run("get_item not found", func(t *testing.T) {
		_, err := client.Run(t.Context(), "get_item", map[string]any{"item_id": "11"})
		var toolErr *mcp.ToolError
		gt.True(t, errors.As(err, &toolErr))
		gt.Equal(t, toolErr.Message, "Item 11 not found")
	})

	t.Run("search_items", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "search_items", map[string]any{"query": "FOOT"})
		gt.NoError(t, err)
		items := resp["result"].([]any)
		gt.A(t, items).Length(1)
		gt.Equal(t, items[0].(map[string]any)["name"], any("Running Sneakers"))
	})

	t.Run("get_items_by_category", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "get_items_by_category", map[string]any{"category": "clothing"})
		gt.NoError(t, err)
		gt.A(t, resp["result"].([]any)).Length(4)
	})

	t.Run("get_categories", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "get_categories", nil)
		gt.NoError(t, err)
		gt.Equal(t, resp["result"], any([]any{"Accessories", "Clothing", "Electronics", "Footwear"}))
	})

	t.Run("get_item_availability", func(t *testing.T) {
		resp, err := client.Run(t.Context(), "get_item_availability", map[string]any{"item_id": "6"})
		gt.NoError(t, err)
		gt.Equal(t, resp["in_stock"], any(true))
		gt.Equal(t, resp["stock_count"], any(float64(15)))
	})
}

func TestCartTools(t *testing.T) {
	client := newClient(t)

	resp, err := client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "1"})
	gt.NoError(t, err)
	gt.Equal(t, resp["message"], "Added Classic T-Shirt to cart")

	resp, err = client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "1", "quantity": 2})
	gt.NoError(t, err)
	cart := resp["cart"].(map[string]any)
	lines := cart["items"].([]any)
	gt.A(t, lines).Length(1)
	gt.Equal(t, lines[0].(map[string]any)["quantity"], any(float64(3)))
	gt.Equal(t, cart["total"], any(59.97))

	_, err = client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "6", "quantity": 100})
	var toolErr *mcp.ToolError
	gt.True(t, errors.As(err, &toolErr))
	gt.Equal(t, toolErr.Message, "Not enough stock. Available: 15")

	_, err = client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "6", "quantity": 1.5})
	gt.True(t, errors.As(err, &toolErr))
	gt.Equal(t, toolErr.Message, "Argument quantity must be an integer")

	// quantity below minimum is rejected before it reaches the server
	_, err = client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "6", "quantity": 0})
	gt.True(t, errors.Is(err, mcp.ErrInvalidArguments))

	resp, err = client.Run(t.Context(), "get_cart", map[string]any{"cart_id": "c1"})
	gt.NoError(t, err)
	gt.Equal(t, resp["cart_id"], "c1")
	gt.Equal(t, resp["total"], any(59.97))

	_, err = client.Run(t.Context(), "remove_from_cart", map[string]any{"cart_id": "c1", "item_id": "2"})
	gt.True(t, errors.As(err, &toolErr))
	gt.Equal(t, toolErr.Message, "Item 2 is not in the cart")

	resp, err = client.Run(t.Context(), "remove_from_cart", map[string]any{"cart_id": "c1", "item_id": "1"})
	gt.NoError(t, err)
	gt.Equal(t, resp["cart"].(map[string]any)["total"], any(float64(0)))

	_, err = client.Run(t.Context(), "add_to_cart", map[string]any{"cart_id": "c1", "item_id": "4"})
	gt.NoError(t, err)
	resp, err = client.Run(t.Context(), "clear_cart", map[string]any{"cart_id": "c1"})
	gt.NoError(t, err)
	gt.Equal(t, resp["message"], "Cart cleared")

	resp, err = client.Run(t.Context(), "get_cart", map[string]any{"cart_id": "c1"})
	gt.NoError(t, err)
	gt.A(t, resp["items"].([]any)).Length(0)
}
