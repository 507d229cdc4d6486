package shopmate

import (
	"context"
	"regexp"
	"slices"

	"github.com/m-mizutani/goerr/v2"
)

// ToolSpec is the specification of a tool exposed to the LLM.
type ToolSpec struct {
	// Name must be unique across all tools and tool sets given to an Agent.
	Name string

	// Description tells the LLM when the tool should be called.
	Description string

	// Parameters defines the arguments the tool accepts, keyed by argument name.
	Parameters map[string]*Parameter

	// Required is the list of required argument names.
	Required []string
}

// Validate validates the tool specification.
func (s *ToolSpec) Validate() error {
	eb := goerr.NewBuilder(goerr.V("tool", s.Name))
	if s.Name == "" {
		return eb.Wrap(ErrInvalidTool, "name is required")
	}

	for name, param := range s.Parameters {
		if err := param.Validate(); err != nil {
			return eb.Wrap(ErrInvalidTool, "invalid parameter", goerr.V("parameter", name))
		}
	}

	for _, req := range s.Required {
		if _, ok := s.Parameters[req]; !ok {
			return eb.Wrap(ErrInvalidTool, "required parameter not defined", goerr.V("parameter", req))
		}
	}

	return nil
}

// Without returns a copy of the spec with the named parameters removed from
// both Parameters and Required.
func (s ToolSpec) Without(names ...string) ToolSpec {
	out := ToolSpec{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  make(map[string]*Parameter, len(s.Parameters)),
	}
	for k, v := range s.Parameters {
		if slices.Contains(names, k) {
			continue
		}
		out.Parameters[k] = v
	}
	for _, req := range s.Required {
		if slices.Contains(names, req) {
			continue
		}
		out.Required = append(out.Required, req)
	}
	return out
}

// JSONSchema renders the spec's parameters as a JSON schema object, the shape
// most function-calling APIs accept.
func (s ToolSpec) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Parameters))
	for name, param := range s.Parameters {
		properties[name] = param.JSONSchema()
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(s.Required) > 0 {
		schema["required"] = s.Required
	}
	return schema
}

// ParameterType is the JSON type of a parameter.
type ParameterType string

const (
	TypeString  ParameterType = "string"
	TypeNumber  ParameterType = "number"
	TypeInteger ParameterType = "integer"
	TypeBoolean ParameterType = "boolean"
	TypeArray   ParameterType = "array"
	TypeObject  ParameterType = "object"
)

// Parameter is a parameter of a tool. It covers the subset of JSON schema
// that the supported LLM providers understand.
type Parameter struct {
	Title       string
	Type        ParameterType
	Description string

	// Required lists required property names when Type is TypeObject.
	Required []string

	Enum []string

	// Properties is used for TypeObject.
	Properties map[string]*Parameter

	// Items is used for TypeArray.
	Items *Parameter

	Minimum *float64
	Maximum *float64

	MinLength *int
	MaxLength *int
	Pattern   string

	MinItems *int
	MaxItems *int

	Default any
}

// Validate validates the parameter.
func (p *Parameter) Validate() error {
	eb := goerr.NewBuilder(goerr.V("type", p.Type))

	if p.Type == "" {
		return eb.Wrap(ErrInvalidParameter, "type is required")
	}

	switch p.Type {
	case TypeObject:
		if p.Properties == nil {
			return eb.Wrap(ErrInvalidParameter, "properties is required for object type")
		}
		for name, prop := range p.Properties {
			if err := prop.Validate(); err != nil {
				return eb.Wrap(ErrInvalidParameter, "invalid property", goerr.V("property", name))
			}
		}
		for _, req := range p.Required {
			if _, ok := p.Properties[req]; !ok {
				return eb.Wrap(ErrInvalidParameter, "required field not found in properties", goerr.V("field", req))
			}
		}

	case TypeArray:
		if p.Items == nil {
			return eb.Wrap(ErrInvalidParameter, "items is required for array type")
		}
		if err := p.Items.Validate(); err != nil {
			return eb.Wrap(ErrInvalidParameter, "invalid items")
		}
		if p.MinItems != nil && p.MaxItems != nil && *p.MinItems > *p.MaxItems {
			return eb.Wrap(ErrInvalidParameter, "minItems must be less than or equal to maxItems")
		}

	case TypeNumber, TypeInteger:
		if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
			return eb.Wrap(ErrInvalidParameter, "minimum must be less than or equal to maximum")
		}

	case TypeString:
		if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
			return eb.Wrap(ErrInvalidParameter, "minLength must be less than or equal to maxLength")
		}
		if p.Pattern != "" {
			if _, err := regexp.Compile(p.Pattern); err != nil {
				return eb.Wrap(ErrInvalidParameter, "invalid pattern", goerr.V("pattern", p.Pattern))
			}
		}

	case TypeBoolean:

	default:
		return eb.Wrap(ErrInvalidParameter, "unknown type")
	}

	if len(p.Enum) > 0 && p.Type != TypeString {
		return eb.Wrap(ErrInvalidParameter, "enum is only valid for string type")
	}

	return nil
}

// JSONSchema renders the parameter as a JSON schema fragment.
func (p *Parameter) JSONSchema() map[string]any {
	schema := map[string]any{
		"type": string(p.Type),
	}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if p.Title != "" {
		schema["title"] = p.Title
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}

	if p.Properties != nil {
		properties := make(map[string]any, len(p.Properties))
		for name, prop := range p.Properties {
			properties[name] = prop.JSONSchema()
		}
		schema["properties"] = properties
		if len(p.Required) > 0 {
			schema["required"] = p.Required
		}
	}

	if p.Items != nil {
		schema["items"] = p.Items.JSONSchema()
	}

	if p.Minimum != nil {
		schema["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		schema["maximum"] = *p.Maximum
	}
	if p.MinLength != nil {
		schema["minLength"] = *p.MinLength
	}
	if p.MaxLength != nil {
		schema["maxLength"] = *p.MaxLength
	}
	if p.Pattern != "" {
		schema["pattern"] = p.Pattern
	}
	if p.MinItems != nil {
		schema["minItems"] = *p.MinItems
	}
	if p.MaxItems != nil {
		schema["maxItems"] = *p.MaxItems
	}
	if p.Default != nil {
		schema["default"] = p.Default
	}

	return schema
}

// Tool is specification and execution of an action that can be called by the LLM.
type Tool interface {
	// Spec returns the specification of the tool. It's called when a new
	// LLM session is created.
	Spec() ToolSpec

	// Run executes the tool. A returned error is passed to the LLM as the
	// function response, it does not abort the conversation.
	Run(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ToolSet is a group of tools served by one backend, such as one MCP server.
type ToolSet interface {
	// Specs returns the specifications of all tools in the set.
	Specs(ctx context.Context) ([]ToolSpec, error)

	// Run executes the tool identified by name.
	Run(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}
