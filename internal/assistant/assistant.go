// Package assistant runs shopping conversations: one LLM agent per
// conversation, wired to the shopping and payment tool servers.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyCart            = errors.New("cart is empty")
)

const DefaultConversationTTL = 30 * time.Minute

type Assistant struct {
	llm      shopmate.LLMClient
	shopping shopmate.ToolSet
	payment  shopmate.ToolSet

	logger       *slog.Logger
	ttl          time.Duration
	now          func() time.Time
	agentOptions []shopmate.Option

	mu            sync.Mutex
	conversations map[string]*Conversation
}

type Option func(*Assistant)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithConversationTTL sets how long an idle conversation is kept. Zero or
// negative disables eviction.
func WithConversationTTL(ttl time.Duration) Option {
	return func(a *Assistant) {
		a.ttl = ttl
	}
}

// WithAgentOptions passes extra options to every conversation's agent.
func WithAgentOptions(options ...shopmate.Option) Option {
	return func(a *Assistant) {
		a.agentOptions = append(a.agentOptions, options...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

// New creates an assistant. shopping and payment are the tool sets of the
// two backend servers.
func New(llm shopmate.LLMClient, shopping, payment shopmate.ToolSet, options ...Option) *Assistant {
	a := &Assistant{
		llm:           llm,
		shopping:      shopping,
		payment:       payment,
		logger:        slog.New(slog.DiscardHandler),
		ttl:           DefaultConversationTTL,
		now:           time.Now,
		conversations: map[string]*Conversation{},
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Start opens a new conversation with an empty cart.
func (a *Assistant) Start(ctx context.Context) *Conversation {
	conv := newConversation(a, uuid.NewString())

	a.mu.Lock()
	a.conversations[conv.id] = conv
	a.mu.Unlock()

	a.logger.Info("conversation started", "conversation_id", conv.id)
	return conv
}

func (a *Assistant) Get(id string) (*Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	conv, ok := a.conversations[id]
	if !ok {
		return nil, goerr.Wrap(ErrConversationNotFound, "no such conversation", goerr.V("conversation_id", id))
	}
	return conv, nil
}

// Delete ends the conversation and empties its cart.
func (a *Assistant) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	conv, ok := a.conversations[id]
	delete(a.conversations, id)
	a.mu.Unlock()

	if !ok {
		return goerr.Wrap(ErrConversationNotFound, "no such conversation", goerr.V("conversation_id", id))
	}

	a.logger.Info("conversation deleted", "conversation_id", id)
	return conv.clearCart(ctx)
}

// Len returns the number of live conversations.
func (a *Assistant) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conversations)
}

// Evict drops conversations idle for longer than the TTL and returns how many
// were dropped. A conversation in the middle of a turn is never evicted.
func (a *Assistant) Evict(ctx context.Context) int {
	if a.ttl <= 0 {
		return 0
	}
	deadline := a.now().Add(-a.ttl)

	var expired []*Conversation
	a.mu.Lock()
	for id, conv := range a.conversations {
		if !conv.turnMu.TryLock() {
			continue
		}
		if conv.idleSince().Before(deadline) {
			expired = append(expired, conv)
			delete(a.conversations, id)
		}
		conv.turnMu.Unlock()
	}
	a.mu.Unlock()

	for _, conv := range expired {
		if err := conv.clearCart(ctx); err != nil {
			a.logger.Warn("failed to clear cart of evicted conversation", "conversation_id", conv.id, "error", err)
		}
	}
	if len(expired) > 0 {
		a.logger.Info("evicted idle conversations", "count", len(expired))
	}
	return len(expired)
}

// RunEvictor calls Evict every interval until ctx is cancelled.
func (a *Assistant) RunEvictor(ctx context.Context, interval time.Duration) {
	if a.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Evict(ctx)
		}
	}
}
