package openai

import (
	"github.com/m-mizutani/shopmate"
	"github.com/sashabaranov/go-openai"
)

// convertTool converts shopmate.Tool to openai.Tool
func convertTool(tool shopmate.Tool) openai.Tool {
	spec := tool.Spec()

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  spec.JSONSchema(),
		},
	}
}
