package assistant_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/internal"
	"github.com/m-mizutani/shopmate/internal/assistant"
	"github.com/m-mizutani/shopmate/internal/catalog"
	"github.com/m-mizutani/shopmate/internal/payment"
	"github.com/m-mizutani/shopmate/internal/shopping"
	"github.com/m-mizutani/shopmate/mcp"
	"github.com/m-mizutani/shopmate/mock"
	"golang.org/x/crypto/bcrypt"
)

// script replays LLM responses in order and records what the agent sent.
type script struct {
	t     *testing.T
	mu    sync.Mutex
	steps []func(input []shopmate.Input) *shopmate.Response

	inputs   [][]shopmate.Input
	sessions []shopmate.SessionConfig
}

func (s *script) then(step func(input []shopmate.Input) *shopmate.Response) *script {
	s.steps = append(s.steps, step)
	return s
}

func (s *script) say(text string) *script {
	return s.then(func([]shopmate.Input) *shopmate.Response {
		return &shopmate.Response{Texts: []string{text}}
	})
}

func (s *script) call(name string, args map[string]any) *script {
	return s.then(func([]shopmate.Input) *shopmate.Response {
		return &shopmate.Response{
			FunctionCalls: []*shopmate.FunctionCall{{ID: "call_" + name, Name: name, Arguments: args}},
		}
	})
}

func (s *script) client() *mock.LLMClientMock {
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
			s.mu.Lock()
			s.sessions = append(s.sessions, shopmate.NewSessionConfig(options...))
			s.mu.Unlock()

			// unanswered function calls of this session
			pending := 0

			return &mock.SessionMock{
				GenerateContentFunc: func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
					s.mu.Lock()
					defer s.mu.Unlock()
					s.inputs = append(s.inputs, input)

					for _, in := range input {
						switch in.(type) {
						case shopmate.Text:
							if pending > 0 {
								return nil, errors.New("400: tool_calls must be followed by tool messages")
							}
						case shopmate.FunctionResponse:
							pending--
						}
					}

					if len(s.steps) == 0 {
						s.t.Fatal("LLM called more times than scripted")
					}
					step := s.steps[0]
					s.steps = s.steps[1:]
					resp := step(input)
					pending += len(resp.FunctionCalls)
					return resp, nil
				},
			}, nil
		},
	}
}

func (s *script) lastResponse(t *testing.T) shopmate.FunctionResponse {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	input := s.inputs[len(s.inputs)-1]
	gt.A(t, input).Length(1)
	resp, ok := input[0].(shopmate.FunctionResponse)
	gt.True(t, ok)
	return resp
}

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newToolSets(t *testing.T) (*mcp.Client, *mcp.Client) {
	t.Helper()

	shop := shopping.New(catalog.NewMemoryStore(), shopping.WithLogger(internal.TestLogger()))
	shopClient, err := mcp.NewInProcess(t.Context(), shop.MCPServer())
	gt.NoError(t, err)
	t.Cleanup(func() { _ = shopClient.Close() })

	users, err := payment.NewMemoryStore(payment.WithPasswordCost(bcrypt.MinCost))
	gt.NoError(t, err)
	svc := payment.NewService(users, payment.NewTokens([]byte("test-secret"), 0),
		payment.WithClock(func() time.Time { return testNow }))
	payClient, err := mcp.NewInProcess(t.Context(), payment.NewServer(svc).MCPServer())
	gt.NoError(t, err)
	t.Cleanup(func() { _ = payClient.Close() })

	return shopClient, payClient
}

func newAssistant(t *testing.T, s *script, options ...assistant.Option) *assistant.Assistant {
	t.Helper()
	s.t = t
	shop, pay := newToolSets(t)
	options = append([]assistant.Option{assistant.WithLogger(internal.TestLogger())}, options...)
	return assistant.New(s.client(), shop, pay, options...)
}

func TestHiddenParameters(t *testing.T) {
	s := (&script{}).say("Welcome!")
	a := newAssistant(t, s)

	conv := a.Start(t.Context())
	_, err := conv.Send(t.Context(), "hello")
	gt.NoError(t, err)

	gt.A(t, s.sessions).Length(1)
	cfg := s.sessions[0]
	gt.Equal(t, cfg.SystemPrompt(), assistant.SystemPrompt)

	specs := map[string]shopmate.ToolSpec{}
	for _, tool := range cfg.Tools() {
		specs[tool.Spec().Name] = tool.Spec()
	}
	gt.Equal(t, len(specs), 17)

	for _, spec := range specs {
		_, hasCart := spec.Parameters["cart_id"]
		gt.False(t, hasCart)
		_, hasToken := spec.Parameters["auth_token"]
		gt.False(t, hasToken)
		gt.False(t, slices.Contains(spec.Required, "cart_id"))
		gt.False(t, slices.Contains(spec.Required, "auth_token"))
	}

	checkout := specs["complete_checkout"]
	_, hasCart := checkout.Parameters["cart"]
	gt.False(t, hasCart)
	_, hasMethod := checkout.Parameters["payment_method_id"]
	gt.True(t, hasMethod)

	_, hasItem := specs["add_to_cart"].Parameters["item_id"]
	gt.True(t, hasItem)
}

func TestShoppingAndCheckout(t *testing.T) {
	s := (&script{}).
		// turn 1: add to cart
		call("add_to_cart", map[string]any{"item_id": "1", "quantity": 2}).
		say("Added 2 Classic T-Shirts to your cart.").
		// turn 2: wallet before login, then authenticate
		call("get_user_wallet", map[string]any{}).
		call("authenticate_user", map[string]any{"identifier": payment.DemoEmail, "password": payment.DemoPassword}).
		say("You are signed in. Which card would you like to use?").
		// turn 3: pay
		call("complete_checkout", map[string]any{"payment_method_id": "1", "address_id": "1"}).
		say("Your order is complete.")

	a := newAssistant(t, s)
	ctx := t.Context()
	conv := a.Start(ctx)

	reply, err := conv.Send(ctx, "I want two t-shirts")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, "Added 2 Classic T-Shirts to your cart.")
	gt.False(t, reply.CheckoutMode)
	gt.A(t, reply.Cart.Items).Length(1)
	gt.Equal(t, reply.Cart.ID, conv.CartID())
	gt.Equal(t, reply.Cart.Items[0].Quantity, 2)
	gt.Equal(t, reply.Cart.Total, 39.98)

	reply, err = conv.StartCheckout(ctx)
	gt.NoError(t, err)
	gt.True(t, reply.CheckoutMode)
	gt.Equal(t, reply.Text, assistant.CheckoutGreeting)
	state := conv.State()
	gt.A(t, state.Messages).Length(1)
	gt.True(t, state.CheckoutMode)

	reply, err = conv.Send(ctx, "user1@example.com, password shopmate")
	gt.NoError(t, err)
	gt.True(t, reply.CheckoutMode)
	gt.Equal(t, reply.Text, "You are signed in. Which card would you like to use?")

	// the checkout session runs with the checkout prompt
	gt.A(t, s.sessions).Length(2)
	gt.S(t, s.sessions[1].SystemPrompt()).Contains(assistant.SystemPrompt)

	// wallet call was refused before authentication
	gt.A(t, s.inputs).Longer(3)
	walletResp, ok := s.inputs[3][0].(shopmate.FunctionResponse)
	gt.True(t, ok)
	gt.Equal(t, walletResp.Name, "get_user_wallet")
	gt.True(t, errors.Is(walletResp.Error, assistant.ErrNotAuthenticated))

	// the token never reaches the LLM
	authResp := s.lastResponse(t)
	gt.Equal(t, authResp.Name, "authenticate_user")
	gt.NoError(t, authResp.Error)
	_, hasToken := authResp.Data["auth_token"]
	gt.False(t, hasToken)
	gt.Equal(t, authResp.Data["authenticated"], any(true))

	state = conv.State()
	gt.True(t, state.Authenticated)
	gt.Equal(t, state.UserID, payment.DemoUserID)

	reply, err = conv.Send(ctx, "card 1, ship to my address")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, "Your order is complete.")
	gt.False(t, reply.CheckoutMode)
	gt.NotNil(t, reply.Transaction)
	gt.Equal(t, reply.Transaction["status"], any("completed"))
	gt.Equal(t, reply.Transaction["amount"], any(39.98))
	gt.A(t, reply.Cart.Items).Length(0)

	checkoutResp := s.lastResponse(t)
	gt.Equal(t, checkoutResp.Name, "complete_checkout")
	items, ok := checkoutResp.Data["items"].([]any)
	gt.True(t, ok)
	gt.A(t, items).Length(1)

	state = conv.State()
	gt.False(t, state.Authenticated)
	gt.False(t, state.CheckoutMode)
	gt.A(t, state.Messages).Length(5)
}

func TestStartCheckoutRequiresItems(t *testing.T) {
	a := newAssistant(t, &script{})
	conv := a.Start(t.Context())

	_, err := conv.StartCheckout(t.Context())
	gt.True(t, errors.Is(err, assistant.ErrEmptyCart))
	gt.False(t, conv.State().CheckoutMode)
}

func TestToolErrorReachesLLM(t *testing.T) {
	s := (&script{}).
		call("add_to_cart", map[string]any{"item_id": "6", "quantity": 99}).
		say("Sorry, we only have 15 in stock.")
	a := newAssistant(t, s)
	conv := a.Start(t.Context())

	reply, err := conv.Send(t.Context(), "99 watches please")
	gt.NoError(t, err)
	gt.A(t, reply.Cart.Items).Length(0)

	resp := s.lastResponse(t)
	var toolErr *mcp.ToolError
	gt.True(t, errors.As(resp.Error, &toolErr))
	gt.Equal(t, toolErr.Message, "Not enough stock. Available: 15")
}

func TestConversationLifecycle(t *testing.T) {
	now := testNow
	clock := func() time.Time { return now }

	s := (&script{}).
		call("add_to_cart", map[string]any{"item_id": "2"}).
		say("ok")
	a := newAssistant(t, s, assistant.WithClock(clock), assistant.WithConversationTTL(time.Minute))
	ctx := t.Context()

	idle := a.Start(ctx)
	_, err := idle.Send(ctx, "jeans")
	gt.NoError(t, err)

	now = now.Add(30 * time.Second)
	fresh := a.Start(ctx)
	gt.Equal(t, a.Len(), 2)

	got, err := a.Get(fresh.ID())
	gt.NoError(t, err)
	gt.Equal(t, got.ID(), fresh.ID())

	now = now.Add(45 * time.Second)
	gt.Equal(t, a.Evict(ctx), 1)
	gt.Equal(t, a.Len(), 1)

	_, err = a.Get(idle.ID())
	gt.True(t, errors.Is(err, assistant.ErrConversationNotFound))

	// evicted carts are emptied
	cart, err := idle.Cart(ctx)
	gt.NoError(t, err)
	gt.True(t, cart.IsEmpty())

	gt.NoError(t, a.Delete(ctx, fresh.ID()))
	gt.Equal(t, a.Len(), 0)
	gt.True(t, errors.Is(a.Delete(ctx, fresh.ID()), assistant.ErrConversationNotFound))
}

func TestFailedTurnRecovers(t *testing.T) {
	s := (&script{}).
		call("get_item", map[string]any{"item_id": "99"}).
		call("get_item", map[string]any{"item_id": "99"}).
		say("We have ten products. What are you looking for?")
	a := newAssistant(t, s, assistant.WithAgentOptions(shopmate.WithRetryLimit(1)))
	conv := a.Start(t.Context())

	reply, err := conv.Send(t.Context(), "show me item 99")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, assistant.TurnFailedMessage)

	reply, err = conv.Send(t.Context(), "what do you sell?")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, "We have ten products. What are you looking for?")
	gt.A(t, s.sessions).Length(2)

	state := conv.State()
	gt.A(t, state.Messages).Length(4)
	gt.Equal(t, state.Messages[1].Content, assistant.TurnFailedMessage)
}

// brokenClear is a shopping tool set whose clear_cart always fails.
type brokenClear struct {
	shopmate.ToolSet
}

func (b *brokenClear) Run(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if name == "clear_cart" {
		return nil, errors.New("catalog unavailable")
	}
	return b.ToolSet.Run(ctx, name, args)
}

func TestCheckoutSurvivesCartClearFailure(t *testing.T) {
	s := (&script{}).
		call("add_to_cart", map[string]any{"item_id": "4"}).
		say("Added a Leather Wallet.").
		call("authenticate_user", map[string]any{"identifier": payment.DemoUserID, "password": payment.DemoPassword}).
		call("complete_checkout", map[string]any{"payment_method_id": "2", "address_id": "1"}).
		say("Your order is complete.")
	s.t = t

	shop, pay := newToolSets(t)
	a := assistant.New(s.client(), &brokenClear{ToolSet: shop}, pay, assistant.WithLogger(internal.TestLogger()))
	ctx := t.Context()
	conv := a.Start(ctx)

	_, err := conv.Send(ctx, "a leather wallet")
	gt.NoError(t, err)
	_, err = conv.StartCheckout(ctx)
	gt.NoError(t, err)

	reply, err := conv.Send(ctx, "user1 / shopmate, debit card, my address, confirmed")
	gt.NoError(t, err)
	gt.Equal(t, reply.Text, "Your order is complete.")
	gt.NotNil(t, reply.Transaction)
	gt.Equal(t, reply.Transaction["status"], any("completed"))
	gt.Equal(t, reply.Transaction["amount"], any(29.99))
	gt.False(t, reply.CheckoutMode)

	// the LLM is told the payment succeeded
	checkoutResp := s.lastResponse(t)
	gt.Equal(t, checkoutResp.Name, "complete_checkout")
	gt.NoError(t, checkoutResp.Error)

	state := conv.State()
	gt.False(t, state.Authenticated)
	gt.False(t, state.CheckoutMode)
}
