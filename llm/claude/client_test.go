package claude_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/llm/claude"
	"github.com/m-mizutani/shopmate/mock"
)

func TestConvertTool(t *testing.T) {
	tool := &mock.ToolMock{
		SpecFunc: func() shopmate.ToolSpec {
			return shopmate.ToolSpec{
				Name:        "save_address",
				Description: "Save a new address",
				Parameters: map[string]*shopmate.Parameter{
					"type":   {Type: shopmate.TypeString, Enum: []string{"shipping", "billing"}},
					"street": {Type: shopmate.TypeString, MinLength: ptr(1)},
					"quantity": {
						Type:    shopmate.TypeInteger,
						Minimum: ptr(1.0),
					},
				},
				Required: []string{"type", "street"},
			}
		},
	}

	union := claude.ConvertTool(tool)
	gt.NotNil(t, union.OfTool)
	gt.Equal(t, union.OfTool.Name, "save_address")

	props, ok := union.OfTool.InputSchema.Properties.(map[string]claude.JSONSchema)
	gt.True(t, ok)
	gt.Equal(t, props["type"].Type, "string")
	gt.Equal(t, props["type"].Enum, []any{"shipping", "billing"})
	gt.Equal(t, *props["street"].MinLength, 1)
	gt.Equal(t, *props["quantity"].Minimum, 1.0)
}

func TestConvertInputs(t *testing.T) {
	t.Run("tool results are grouped", func(t *testing.T) {
		messages, err := claude.ConvertInputs(
			shopmate.FunctionResponse{ID: "toolu_1", Name: "get_cart", Data: map[string]any{"items": []any{}}},
			shopmate.FunctionResponse{ID: "toolu_2", Name: "get_item", Error: errors.New("Item 99 not found")},
		)
		gt.NoError(t, err)
		gt.Equal(t, len(messages), 1)
		gt.Equal(t, len(messages[0].Content), 2)
		gt.Equal(t, messages[0].Role, anthropic.MessageParamRoleUser)
	})

	t.Run("text becomes user message", func(t *testing.T) {
		messages, err := claude.ConvertInputs(shopmate.Text("hello"))
		gt.NoError(t, err)
		gt.Equal(t, len(messages), 1)
		gt.Equal(t, messages[0].Role, anthropic.MessageParamRoleUser)
	})
}

func TestCreateSystemPrompt(t *testing.T) {
	gt.Equal(t, len(claude.CreateSystemPrompt(shopmate.NewSessionConfig())), 0)

	blocks := claude.CreateSystemPrompt(shopmate.NewSessionConfig(
		shopmate.WithSessionSystemPrompt("You are a shopping assistant."),
	))
	gt.Equal(t, len(blocks), 1)
	gt.Equal(t, blocks[0].Text, "You are a shopping assistant.")
}

func TestNew(t *testing.T) {
	_, err := claude.New(context.Background(), "")
	gt.Error(t, err)
}

func TestGenerateContent(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_CLAUDE_API_KEY")
	if !ok {
		t.Skip("TEST_CLAUDE_API_KEY is not set")
	}

	client, err := claude.New(t.Context(), apiKey)
	gt.NoError(t, err)

	session, err := client.NewSession(t.Context())
	gt.NoError(t, err)

	result, err := session.GenerateContent(t.Context(), shopmate.Text("Say hello in one word."))
	gt.NoError(t, err)
	gt.Array(t, result.Texts).Length(1).Required()
}

func ptr[T any](v T) *T {
	return &v
}
