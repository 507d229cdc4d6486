package gemini

import (
	"context"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.0-flash"

// Client is a client for Gemini models on Vertex AI.
type Client struct {
	projectID string
	location  string

	client *genai.Client

	defaultModel    string
	temperature     *float32
	credentialsFile string
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithModel sets the default model. Default is [DefaultModel].
func WithModel(modelName string) Option {
	return func(c *Client) {
		c.defaultModel = modelName
	}
}

// WithTemperature sets the temperature parameter for text generation.
func WithTemperature(temp float32) Option {
	return func(c *Client) {
		c.temperature = &temp
	}
}

// WithCredentialsFile sets the path to a service account key. Application
// default credentials are used when not set.
func WithCredentialsFile(path string) Option {
	return func(c *Client) {
		c.credentialsFile = path
	}
}

// New creates a new client for Gemini on Vertex AI.
func New(ctx context.Context, projectID, location string, options ...Option) (*Client, error) {
	if projectID == "" {
		return nil, goerr.New("projectID is required")
	}
	if location == "" {
		return nil, goerr.New("location is required")
	}

	client := &Client{
		projectID:    projectID,
		location:     location,
		defaultModel: DefaultModel,
	}
	for _, opt := range options {
		opt(client)
	}

	var clientOptions []option.ClientOption
	if client.credentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(client.credentialsFile))
	}

	newClient, err := genai.NewClient(ctx, projectID, location, clientOptions...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Vertex AI client",
			goerr.V("projectID", projectID),
			goerr.V("location", location),
		)
	}
	client.client = newClient

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// NewSession creates a new chat session. Gemini keeps the history inside the
// ChatSession.
func (c *Client) NewSession(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
	cfg := shopmate.NewSessionConfig(options...)

	model := c.client.GenerativeModel(c.defaultModel)
	if c.temperature != nil {
		model.SetTemperature(*c.temperature)
	}

	if cfg.SystemPrompt() != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(cfg.SystemPrompt())},
		}
	}

	if len(cfg.Tools()) > 0 {
		declarations := make([]*genai.FunctionDeclaration, len(cfg.Tools()))
		for i, tool := range cfg.Tools() {
			declarations[i] = convertTool(tool)
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	return &Session{
		session: model.StartChat(),
	}, nil
}

type Session struct {
	session *genai.ChatSession
}

func (s *Session) GenerateContent(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
	parts, err := convertInputs(input...)
	if err != nil {
		return nil, err
	}

	resp, err := s.session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send message")
	}

	return processResponse(resp), nil
}

func convertInputs(input ...shopmate.Input) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(input))

	for _, in := range input {
		switch v := in.(type) {
		case shopmate.Text:
			parts = append(parts, genai.Text(string(v)))

		case shopmate.FunctionResponse:
			parts = append(parts, genai.FunctionResponse{
				Name:     v.Name,
				Response: v.Payload(),
			})

		default:
			return nil, goerr.Wrap(shopmate.ErrInvalidParameter, "unsupported input type", goerr.V("input", in))
		}
	}

	return parts, nil
}

// processResponse flattens the candidates. Gemini does not assign IDs to
// function calls, so one is generated per call.
func processResponse(resp *genai.GenerateContentResponse) *shopmate.Response {
	response := &shopmate.Response{
		Texts:         make([]string, 0),
		FunctionCalls: make([]*shopmate.FunctionCall, 0),
	}
	if resp.UsageMetadata != nil {
		response.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		response.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				response.Texts = append(response.Texts, string(v))
			case genai.FunctionCall:
				response.FunctionCalls = append(response.FunctionCalls, &shopmate.FunctionCall{
					ID:        uuid.NewString(),
					Name:      v.Name,
					Arguments: v.Args,
				})
			}
		}
	}

	return response
}
