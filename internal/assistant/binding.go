package assistant

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
)

const (
	argCartID    = "cart_id"
	argAuthToken = "auth_token"
	argCart      = "cart"

	toolGetCart          = "get_cart"
	toolClearCart        = "clear_cart"
	toolAuthenticateUser = "authenticate_user"
	toolCompleteCheckout = "complete_checkout"
)

var ErrNotAuthenticated = errors.New("not authenticated: ask the user to authenticate with authenticate_user first")

// boundToolSet hides the conversation's identifiers from the LLM. Specs drop
// the bound parameters and Run puts them back. It runs while the
// conversation's turn lock is held.
type boundToolSet struct {
	inner shopmate.ToolSet
	conv  *Conversation

	mu    sync.Mutex
	specs []shopmate.ToolSpec
	bound map[string][]string
}

func newBoundToolSet(inner shopmate.ToolSet, conv *Conversation) *boundToolSet {
	return &boundToolSet{inner: inner, conv: conv}
}

func (b *boundToolSet) load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.specs != nil {
		return nil
	}

	specs, err := b.inner.Specs(ctx)
	if err != nil {
		return err
	}

	b.bound = map[string][]string{}
	b.specs = make([]shopmate.ToolSpec, 0, len(specs))
	for _, spec := range specs {
		var hidden []string
		for _, name := range []string{argCartID, argAuthToken} {
			if _, ok := spec.Parameters[name]; ok {
				hidden = append(hidden, name)
			}
		}
		if spec.Name == toolCompleteCheckout {
			hidden = append(hidden, argCart)
		}

		b.bound[spec.Name] = hidden
		b.specs = append(b.specs, spec.Without(hidden...))
	}
	return nil
}

func (b *boundToolSet) Specs(ctx context.Context) ([]shopmate.ToolSpec, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(b.specs), nil
}

func (b *boundToolSet) Run(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if err := b.load(ctx); err != nil {
		return nil, err
	}

	callArgs := maps.Clone(args)
	if callArgs == nil {
		callArgs = map[string]any{}
	}

	for _, param := range b.bound[name] {
		switch param {
		case argCartID:
			callArgs[argCartID] = b.conv.cartID

		case argAuthToken:
			token := b.conv.token()
			if token == "" {
				return nil, ErrNotAuthenticated
			}
			callArgs[argAuthToken] = token

		case argCart:
			lines, err := b.conv.cartLines(ctx)
			if err != nil {
				return nil, err
			}
			callArgs[argCart] = lines
		}
	}

	result, err := b.inner.Run(ctx, name, callArgs)
	if err != nil {
		return nil, err
	}

	switch name {
	case toolAuthenticateUser:
		return b.conv.onAuthenticated(result), nil
	case toolCompleteCheckout:
		b.conv.onCheckout(ctx, result)
	}

	return result, nil
}

// cartLines reads the current cart from the shopping server in the shape
// complete_checkout expects.
func (c *Conversation) cartLines(ctx context.Context) ([]map[string]any, error) {
	cart, err := c.Cart(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read cart for checkout", goerr.V("cart_id", c.cartID))
	}

	lines := make([]map[string]any, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, map[string]any{
			"item_id":  item.ItemID,
			"name":     item.Name,
			"price":    item.Price,
			"quantity": item.Quantity,
		})
	}
	return lines, nil
}
