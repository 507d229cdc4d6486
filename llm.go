package shopmate

//go:generate go tool moq -out mock/mock_gen.go -pkg mock . LLMClient Session Tool ToolSet

import (
	"context"
	"log/slog"
)

// LLMClient is a client for each LLM service.
type LLMClient interface {
	NewSession(ctx context.Context, options ...SessionOption) (Session, error)
}

// Session is a conversation with the LLM. Implementations keep the
// provider-native message history, so consecutive GenerateContent calls
// continue the same conversation.
type Session interface {
	GenerateContent(ctx context.Context, input ...Input) (*Response, error)
}

// SessionConfig is the resolved configuration of a new session. LLM clients
// build it from the options with NewSessionConfig.
type SessionConfig struct {
	systemPrompt string
	tools        []Tool
}

func (c *SessionConfig) SystemPrompt() string { return c.systemPrompt }
func (c *SessionConfig) Tools() []Tool        { return c.tools }

type SessionOption func(*SessionConfig)

// WithSessionSystemPrompt sets the system prompt of the session.
func WithSessionSystemPrompt(prompt string) SessionOption {
	return func(c *SessionConfig) {
		c.systemPrompt = prompt
	}
}

// WithSessionTools adds tools the LLM may call in the session.
func WithSessionTools(tools ...Tool) SessionOption {
	return func(c *SessionConfig) {
		c.tools = append(c.tools, tools...)
	}
}

func NewSessionConfig(options ...SessionOption) SessionConfig {
	var cfg SessionConfig
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Response is a general response type for each LLM.
type Response struct {
	Texts         []string
	FunctionCalls []*FunctionCall
	InputToken    int
	OutputToken   int
}

func (r *Response) HasData() bool {
	return len(r.Texts) > 0 || len(r.FunctionCalls) > 0
}

type Input interface {
	isInput() restrictedValue
	LogValue() slog.Value
	String() string
}

type restrictedValue struct{}

// Text is a text input as prompt.
type Text string

func (t Text) isInput() restrictedValue {
	return restrictedValue{}
}

func (t Text) LogValue() slog.Value {
	return slog.StringValue(string(t))
}

func (t Text) String() string {
	return string(t)
}

// FunctionResponse carries the result of a tool call back to the LLM. ID and
// Name must match the FunctionCall that requested it. Either Data or Error is
// set.
type FunctionResponse struct {
	ID    string
	Name  string
	Data  map[string]any
	Error error
}

func (f FunctionResponse) isInput() restrictedValue {
	return restrictedValue{}
}

func (f FunctionResponse) String() string {
	if f.Error != nil {
		return f.Name + " (error: " + f.Error.Error() + ")"
	}
	return f.Name + " (success)"
}

func (f FunctionResponse) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("id", f.ID),
		slog.String("name", f.Name),
	}
	if f.Data != nil {
		attrs = append(attrs, slog.Any("data", f.Data))
	}
	if f.Error != nil {
		attrs = append(attrs, slog.String("error", f.Error.Error()))
	}
	return slog.GroupValue(attrs...)
}

// Payload returns the JSON-compatible body sent to the provider for this
// response: Data on success, {"error": message} on failure.
func (f FunctionResponse) Payload() map[string]any {
	if f.Error != nil {
		return map[string]any{"error": f.Error.Error()}
	}
	if f.Data == nil {
		return map[string]any{}
	}
	return f.Data
}
