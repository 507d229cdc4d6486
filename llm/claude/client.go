package claude

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
)

// generationParameters represents the parameters for text generation.
type generationParameters struct {
	Temperature float64
	TopP        float64
	MaxTokens   int64
}

// Client is a client for the Claude API.
type Client struct {
	client *anthropic.Client

	// defaultModel can be overridden using WithModel option.
	defaultModel string

	params generationParameters
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model to use for chat completions.
// Default: anthropic.ModelClaude3_5SonnetLatest
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
// Range: 0.0 to 1.0
// Default: 0.7
func WithTemperature(temp float64) Option {
	return func(c *Client) {
		c.params.Temperature = temp
	}
}

// WithTopP sets the top_p parameter for text generation.
// Default: 1.0
func WithTopP(topP float64) Option {
	return func(c *Client) {
		c.params.TopP = topP
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Default: 4096
func WithMaxTokens(maxTokens int64) Option {
	return func(c *Client) {
		c.params.MaxTokens = maxTokens
	}
}

// New creates a new client for the Claude API.
func New(ctx context.Context, apiKey string, options ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("Anthropic API key is required")
	}

	client := &Client{
		defaultModel: anthropic.ModelClaude3_5SonnetLatest,
		params: generationParameters{
			Temperature: 0.7,
			TopP:        1.0,
			MaxTokens:   4096,
		},
	}

	for _, option := range options {
		option(client)
	}

	newClient := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	client.client = &newClient

	return client, nil
}

// Session is a session for the Claude chat.
type Session struct {
	client       *anthropic.Client
	defaultModel string
	system       []anthropic.TextBlockParam
	tools        []anthropic.ToolUnionParam
	messages     []anthropic.MessageParam
	params       generationParameters
}

// NewSession creates a new session for the Claude API.
func (c *Client) NewSession(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
	cfg := shopmate.NewSessionConfig(options...)

	claudeTools := make([]anthropic.ToolUnionParam, len(cfg.Tools()))
	for i, tool := range cfg.Tools() {
		claudeTools[i] = convertTool(tool)
	}

	session := &Session{
		client:       c.client,
		defaultModel: c.defaultModel,
		system:       createSystemPrompt(cfg),
		tools:        claudeTools,
		params:       c.params,
	}

	return session, nil
}

func createSystemPrompt(cfg shopmate.SessionConfig) []anthropic.TextBlockParam {
	if cfg.SystemPrompt() == "" {
		return []anthropic.TextBlockParam{}
	}
	return []anthropic.TextBlockParam{{Text: cfg.SystemPrompt()}}
}

// convertInputs converts shopmate.Input to Claude messages. Tool results of
// one turn are grouped into a single user message.
func convertInputs(input ...shopmate.Input) ([]anthropic.MessageParam, error) {
	var toolResults []anthropic.ContentBlockParamUnion
	var messages []anthropic.MessageParam

	for _, in := range input {
		switch v := in.(type) {
		case shopmate.Text:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(string(v)),
			))

		case shopmate.FunctionResponse:
			response, err := json.Marshal(v.Payload())
			if err != nil {
				return nil, goerr.Wrap(err, "failed to marshal function response", goerr.V("name", v.Name))
			}
			toolResults = append(toolResults, anthropic.NewToolResultBlock(v.ID, string(response), v.Error != nil))

		default:
			return nil, goerr.Wrap(shopmate.ErrInvalidParameter, "invalid input", goerr.V("input", in))
		}
	}

	if len(toolResults) > 0 {
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
	}

	return messages, nil
}

func (s *Session) createRequest() anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       s.defaultModel,
		MaxTokens:   s.params.MaxTokens,
		Temperature: anthropic.Float(s.params.Temperature),
		TopP:        anthropic.Float(s.params.TopP),
		System:      s.system,
		Tools:       s.tools,
		Messages:    s.messages,
	}
}

// processResponse converts Claude response to shopmate.Response
func processResponse(resp *anthropic.Message) (*shopmate.Response, error) {
	response := &shopmate.Response{
		Texts:         make([]string, 0),
		FunctionCalls: make([]*shopmate.FunctionCall, 0),
		InputToken:    int(resp.Usage.InputTokens),
		OutputToken:   int(resp.Usage.OutputTokens),
	}

	for _, content := range resp.Content {
		switch content.Type {
		case "text":
			response.Texts = append(response.Texts, content.AsResponseTextBlock().Text)

		case "tool_use":
			toolUseBlock := content.AsResponseToolUseBlock()
			var args map[string]any
			if len(toolUseBlock.Input) > 0 {
				if err := json.Unmarshal([]byte(toolUseBlock.Input), &args); err != nil {
					return nil, goerr.Wrap(err, "failed to unmarshal function arguments", goerr.V("name", toolUseBlock.Name))
				}
			}

			response.FunctionCalls = append(response.FunctionCalls, &shopmate.FunctionCall{
				ID:        toolUseBlock.ID,
				Name:      toolUseBlock.Name,
				Arguments: args,
			})
		}
	}

	return response, nil
}

// GenerateContent processes the input and generates a response.
func (s *Session) GenerateContent(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
	messages, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}

	s.messages = append(s.messages, messages...)

	resp, err := s.client.Messages.New(ctx, s.createRequest())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create message", goerr.V("model", s.defaultModel))
	}

	// Add assistant's response to message history
	s.messages = append(s.messages, resp.ToParam())

	return processResponse(resp)
}
