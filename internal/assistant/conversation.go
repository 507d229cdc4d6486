package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/internal/catalog"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Reply is the outcome of one user turn.
type Reply struct {
	Text         string         `json:"reply"`
	Cart         *catalog.Cart  `json:"cart"`
	CheckoutMode bool           `json:"checkout_mode"`
	Transaction  map[string]any `json:"transaction,omitempty"`
}

// State is a read-only view of a conversation.
type State struct {
	ID            string    `json:"id"`
	Messages      []Message `json:"messages"`
	CheckoutMode  bool      `json:"checkout_mode"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"user_id,omitempty"`
}

// Conversation is one shopper's chat. Turns are serialized: Send and
// StartCheckout hold turnMu until the LLM has answered.
type Conversation struct {
	id     string
	cartID string
	owner  *Assistant

	turnMu sync.Mutex
	agent  *shopmate.Agent

	stateMu      sync.Mutex
	authToken    string
	userID       string
	checkoutMode bool
	messages     []Message
	lastActive   time.Time
	transaction  map[string]any
}

func newConversation(owner *Assistant, id string) *Conversation {
	c := &Conversation{
		id:         id,
		cartID:     "cart_" + id,
		owner:      owner,
		messages:   []Message{},
		lastActive: owner.now(),
	}

	options := append([]shopmate.Option{
		shopmate.WithSystemPrompt(SystemPrompt),
		shopmate.WithToolSets(
			newBoundToolSet(owner.shopping, c),
			newBoundToolSet(owner.payment, c),
		),
		shopmate.WithLogger(owner.logger.With("conversation_id", id)),
	}, owner.agentOptions...)
	c.agent = shopmate.New(owner.llm, options...)

	return c
}

func (c *Conversation) ID() string { return c.id }

func (c *Conversation) CartID() string { return c.cartID }

func (c *Conversation) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	return State{
		ID:            c.id,
		Messages:      append([]Message{}, c.messages...),
		CheckoutMode:  c.checkoutMode,
		Authenticated: c.authToken != "",
		UserID:        c.userID,
	}
}

func (c *Conversation) touch() {
	c.stateMu.Lock()
	c.lastActive = c.owner.now()
	c.stateMu.Unlock()
}

func (c *Conversation) idleSince() time.Time {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.lastActive
}

func (c *Conversation) appendMessage(role Role, content string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.messages = append(c.messages, Message{Role: role, Content: content, CreatedAt: c.owner.now()})
}

func (c *Conversation) token() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.authToken
}

// Send handles one user message to completion.
func (c *Conversation) Send(ctx context.Context, text string) (*Reply, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	c.touch()
	defer c.touch()

	c.appendMessage(RoleUser, text)

	c.stateMu.Lock()
	checkout := c.checkoutMode
	c.transaction = nil
	c.stateMu.Unlock()

	var options []shopmate.Option
	if checkout {
		options = append(options, shopmate.WithSystemPrompt(checkoutPrompt()))
	}

	resp, err := c.agent.Execute(ctx, text, options...)

	c.stateMu.Lock()
	tx := c.transaction
	c.stateMu.Unlock()

	var replyText string
	switch {
	case err == nil:
		replyText = resp.String()

	case tx != nil:
		// The payment went through even though the LLM did not finish.
		c.owner.logger.Warn("turn failed after checkout completed", "conversation_id", c.id, "error", err)
		replyText = fmt.Sprintf(OrderPlacedMessage, tx["id"])

	case errors.Is(err, shopmate.ErrToolRetryLimitExceeded), errors.Is(err, shopmate.ErrLoopLimitExceeded):
		c.owner.logger.Warn("turn stopped", "conversation_id", c.id, "error", err)
		replyText = TurnFailedMessage

	default:
		return nil, goerr.Wrap(err, "failed to handle message", goerr.V("conversation_id", c.id))
	}
	c.appendMessage(RoleAssistant, replyText)

	c.stateMu.Lock()
	reply := &Reply{
		Text:         replyText,
		CheckoutMode: c.checkoutMode,
		Transaction:  tx,
	}
	c.stateMu.Unlock()

	// The purchase is done, so the next turn starts a fresh shopping session.
	if tx != nil {
		c.agent.Reset()
	}

	cart, err := c.Cart(ctx)
	if err != nil {
		return nil, err
	}
	reply.Cart = cart

	return reply, nil
}

// StartCheckout switches the conversation to the checkout flow. The LLM
// session and the visible log restart with the checkout greeting.
func (c *Conversation) StartCheckout(ctx context.Context) (*Reply, error) {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	c.touch()

	cart, err := c.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, goerr.Wrap(ErrEmptyCart, "cannot start checkout", goerr.V("conversation_id", c.id))
	}

	c.agent.Reset()

	c.stateMu.Lock()
	c.checkoutMode = true
	c.transaction = nil
	c.messages = []Message{{Role: RoleAssistant, Content: CheckoutGreeting, CreatedAt: c.owner.now()}}
	c.stateMu.Unlock()

	return &Reply{
		Text:         CheckoutGreeting,
		Cart:         cart,
		CheckoutMode: true,
	}, nil
}

// Cart reads the conversation's cart from the shopping server.
func (c *Conversation) Cart(ctx context.Context) (*catalog.Cart, error) {
	result, err := c.owner.shopping.Run(ctx, toolGetCart, map[string]any{argCartID: c.cartID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get cart", goerr.V("cart_id", c.cartID))
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal cart")
	}
	var cart catalog.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, goerr.Wrap(err, "failed to decode cart", goerr.V("cart", result))
	}
	if cart.Items == nil {
		cart.Items = []catalog.CartItem{}
	}
	return &cart, nil
}

func (c *Conversation) clearCart(ctx context.Context) error {
	if _, err := c.owner.shopping.Run(ctx, toolClearCart, map[string]any{argCartID: c.cartID}); err != nil {
		return goerr.Wrap(err, "failed to clear cart", goerr.V("cart_id", c.cartID))
	}
	return nil
}

// onAuthenticated keeps the token in the conversation and returns the result
// without it.
func (c *Conversation) onAuthenticated(result map[string]any) map[string]any {
	token, _ := result[argAuthToken].(string)
	userID, _ := result["user_id"].(string)

	c.stateMu.Lock()
	if token != "" {
		c.authToken = token
		c.userID = userID
	}
	c.stateMu.Unlock()

	stripped := make(map[string]any, len(result))
	for k, v := range result {
		if k != argAuthToken {
			stripped[k] = v
		}
	}
	return stripped
}

// onCheckout ends the checkout flow once the payment server reports the
// transaction as completed. The payment is final at that point, so a failure
// to empty the cart is only logged.
func (c *Conversation) onCheckout(ctx context.Context, result map[string]any) {
	if status, _ := result["status"].(string); status != "completed" {
		return
	}

	c.stateMu.Lock()
	c.checkoutMode = false
	c.authToken = ""
	c.transaction = result
	c.stateMu.Unlock()

	logger := shopmate.LoggerFromContext(ctx)
	logger.Info("checkout completed", "conversation_id", c.id, "transaction", result["id"])

	if err := c.clearCart(ctx); err != nil {
		logger.Error("failed to clear cart after checkout", "conversation_id", c.id, "transaction", result["id"], "error", err)
	}
}
