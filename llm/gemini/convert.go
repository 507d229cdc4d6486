package gemini

import (
	"cloud.google.com/go/vertexai/genai"
	"github.com/m-mizutani/shopmate"
)

func convertTool(tool shopmate.Tool) *genai.FunctionDeclaration {
	spec := tool.Spec()

	parameters := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema),
		Required:   spec.Required,
	}

	for name, param := range spec.Parameters {
		parameters.Properties[name] = convertParameterToSchema(param)
	}

	return &genai.FunctionDeclaration{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters:  parameters,
	}
}

func convertParameterToSchema(param *shopmate.Parameter) *genai.Schema {
	schema := &genai.Schema{
		Type:        getGenaiType(param.Type),
		Title:       param.Title,
		Description: param.Description,
		Enum:        param.Enum,
	}

	if param.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema)
		for propName, prop := range param.Properties {
			schema.Properties[propName] = convertParameterToSchema(prop)
		}
		if len(param.Required) > 0 {
			schema.Required = param.Required
		}
	}

	if param.Items != nil {
		schema.Items = convertParameterToSchema(param.Items)
	}

	return schema
}

func getGenaiType(paramType shopmate.ParameterType) genai.Type {
	switch paramType {
	case shopmate.TypeString:
		return genai.TypeString
	case shopmate.TypeNumber:
		return genai.TypeNumber
	case shopmate.TypeInteger:
		return genai.TypeInteger
	case shopmate.TypeBoolean:
		return genai.TypeBoolean
	case shopmate.TypeArray:
		return genai.TypeArray
	case shopmate.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
