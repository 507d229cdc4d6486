package claude

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/shopmate"
)

func convertTool(tool shopmate.Tool) anthropic.ToolUnionParam {
	spec := tool.Spec()
	schema := convertParametersToJSONSchema(spec.Parameters)

	union := anthropic.ToolUnionParamOfTool(
		anthropic.ToolInputSchemaParam{
			Properties: schema.Properties,
		},
		spec.Name,
	)
	if union.OfTool != nil && spec.Description != "" {
		union.OfTool.Description = anthropic.String(spec.Description)
	}

	return union
}

type jsonSchema struct {
	Type        string                `json:"type"`
	Properties  map[string]jsonSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Items       *jsonSchema           `json:"items,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty"`
	Maximum     *float64              `json:"maximum,omitempty"`
	MinLength   *int                  `json:"minLength,omitempty"`
	MaxLength   *int                  `json:"maxLength,omitempty"`
	Pattern     string                `json:"pattern,omitempty"`
	MinItems    *int                  `json:"minItems,omitempty"`
	MaxItems    *int                  `json:"maxItems,omitempty"`
	Default     any                   `json:"default,omitempty"`
	Enum        []any                 `json:"enum,omitempty"`
	Description string                `json:"description,omitempty"`
	Title       string                `json:"title,omitempty"`
}

func convertParametersToJSONSchema(params map[string]*shopmate.Parameter) jsonSchema {
	properties := make(map[string]jsonSchema)

	for name, param := range params {
		properties[name] = convertParameterToSchema(param)
	}

	return jsonSchema{
		Type:       "object",
		Properties: properties,
	}
}

func convertParameterToSchema(param *shopmate.Parameter) jsonSchema {
	schema := jsonSchema{
		Type:        string(param.Type),
		Description: param.Description,
		Title:       param.Title,
		Default:     param.Default,
	}

	if len(param.Enum) > 0 {
		schema.Enum = make([]any, len(param.Enum))
		for i, v := range param.Enum {
			schema.Enum[i] = v
		}
	}

	if param.Properties != nil {
		schema.Properties = make(map[string]jsonSchema, len(param.Properties))
		for name, prop := range param.Properties {
			schema.Properties[name] = convertParameterToSchema(prop)
		}
		schema.Required = param.Required
	}

	if param.Items != nil {
		items := convertParameterToSchema(param.Items)
		schema.Items = &items
	}

	switch param.Type {
	case shopmate.TypeNumber, shopmate.TypeInteger:
		schema.Minimum = param.Minimum
		schema.Maximum = param.Maximum
	case shopmate.TypeString:
		schema.MinLength = param.MinLength
		schema.MaxLength = param.MaxLength
		schema.Pattern = param.Pattern
	case shopmate.TypeArray:
		schema.MinItems = param.MinItems
		schema.MaxItems = param.MaxItems
	}

	return schema
}
