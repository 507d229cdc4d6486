package openai

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
	"github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o"

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Client is a client for the OpenAI chat completion API.
type Client struct {
	client       *openai.Client
	defaultModel string
	baseURL      string
	params       generationParameters
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the model for chat completions. Default is [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithBaseURL sets a custom API endpoint, e.g. an OpenAI compatible server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

func WithTopP(topP float32) Option {
	return func(c *Client) {
		c.params.TopP = topP
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new client for the OpenAI API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("OpenAI API key is required")
	}

	client := &Client{
		defaultModel: DefaultModel,
	}
	for _, option := range options {
		option(client)
	}

	config := openai.DefaultConfig(apiKey)
	if client.baseURL != "" {
		config.BaseURL = client.baseURL
	}
	client.client = openai.NewClientWithConfig(config)

	return client, nil
}

// NewSession creates a new chat session. The system prompt becomes the first
// message of the conversation.
func (c *Client) NewSession(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
	cfg := shopmate.NewSessionConfig(options...)

	tools := make([]openai.Tool, len(cfg.Tools()))
	for i, tool := range cfg.Tools() {
		tools[i] = convertTool(tool)
	}

	session := &Session{
		client: c.client,
		model:  c.defaultModel,
		params: c.params,
		tools:  tools,
	}
	if prompt := cfg.SystemPrompt(); prompt != "" {
		session.messages = append(session.messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt,
		})
	}

	return session, nil
}

// Session is a session for the OpenAI chat. It holds the message history.
type Session struct {
	client   *openai.Client
	model    string
	params   generationParameters
	tools    []openai.Tool
	messages []openai.ChatCompletionMessage
}

func (s *Session) GenerateContent(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
	messages, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}
	s.messages = append(s.messages, messages...)

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    s.messages,
		Temperature: s.params.Temperature,
		TopP:        s.params.TopP,
		MaxTokens:   s.params.MaxTokens,
	}
	if len(s.tools) > 0 {
		req.Tools = s.tools
	}

	shopmate.LoggerFromContext(ctx).Debug("openai request", "model", s.model, "messages", len(s.messages))

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chat completion", goerr.V("model", s.model))
	}

	if len(resp.Choices) == 0 {
		return &shopmate.Response{}, nil
	}

	message := resp.Choices[0].Message
	s.messages = append(s.messages, message)

	response, err := convertMessage(message)
	if err != nil {
		return nil, err
	}
	response.InputToken = resp.Usage.PromptTokens
	response.OutputToken = resp.Usage.CompletionTokens

	return response, nil
}

func convertInputs(input ...shopmate.Input) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(input))

	for _, in := range input {
		switch v := in.(type) {
		case shopmate.Text:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: string(v),
			})

		case shopmate.FunctionResponse:
			response, err := json.Marshal(v.Payload())
			if err != nil {
				return nil, goerr.Wrap(err, "failed to marshal function response", goerr.V("name", v.Name))
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(response),
				Name:       v.Name,
				ToolCallID: v.ID,
			})

		default:
			return nil, goerr.Wrap(shopmate.ErrInvalidParameter, "unsupported input type", goerr.V("input", in))
		}
	}

	return messages, nil
}

func convertMessage(message openai.ChatCompletionMessage) (*shopmate.Response, error) {
	response := &shopmate.Response{
		Texts:         make([]string, 0),
		FunctionCalls: make([]*shopmate.FunctionCall, 0, len(message.ToolCalls)),
	}

	if message.Content != "" {
		response.Texts = append(response.Texts, message.Content)
	}

	for _, toolCall := range message.ToolCalls {
		var args map[string]any
		if toolCall.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal tool arguments",
					goerr.V("tool", toolCall.Function.Name),
					goerr.V("arguments", toolCall.Function.Arguments),
				)
			}
		}

		response.FunctionCalls = append(response.FunctionCalls, &shopmate.FunctionCall{
			ID:        toolCall.ID,
			Name:      toolCall.Function.Name,
			Arguments: args,
		})
	}

	return response, nil
}
