package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/shopmate"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	DefaultClientName    = "shopmate"
	DefaultClientVersion = "0.1.0"
)

var (
	ErrInvalidArguments   = errors.New("invalid tool arguments")
	ErrInvalidInputSchema = errors.New("invalid input schema")
	ErrUnknownTool        = errors.New("unknown tool")
)

// ToolError is returned by Run when the server answered the call with an
// error result. Message is the text the server sent.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

// Client is a shopmate.ToolSet backed by one MCP server.
type Client struct {
	name    string
	version string

	// stdio
	envVars []string
	// SSE
	headers map[string]string

	client     *client.Client
	initResult *mcp.InitializeResult

	schemaMutex sync.RWMutex
	schemas     map[string]*jsonschema.Schema
}

type Option func(*Client)

// WithEnvVars sets the environment variables for a stdio server. It appends to the existing ones.
func WithEnvVars(envVars []string) Option {
	return func(c *Client) {
		c.envVars = append(c.envVars, envVars...)
	}
}

// WithHeaders sets the HTTP headers for an SSE server. It replaces the existing headers setting.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithClientInfo sets the client name and version sent on initialization.
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		c.name = name
		c.version = version
	}
}

func newClient(options ...Option) *Client {
	c := &Client{
		name:    DefaultClientName,
		version: DefaultClientVersion,
		headers: map[string]string{},
		schemas: map[string]*jsonschema.Schema{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewStdio spawns path as a local MCP server and talks to it over stdio.
func NewStdio(ctx context.Context, path string, args []string, options ...Option) (*Client, error) {
	c := newClient(options...)
	tp := transport.NewStdio(path, c.envVars, args...)
	if err := c.start(ctx, client.NewClient(tp)); err != nil {
		return nil, goerr.Wrap(err, "failed to start stdio MCP client", goerr.V("path", path))
	}
	return c, nil
}

// NewSSE connects to a remote MCP server via HTTP SSE.
func NewSSE(ctx context.Context, baseURL string, options ...Option) (*Client, error) {
	c := newClient(options...)
	tp, err := transport.NewSSE(baseURL, transport.WithHeaders(c.headers))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create SSE transport", goerr.V("url", baseURL))
	}
	if err := c.start(ctx, client.NewClient(tp)); err != nil {
		return nil, goerr.Wrap(err, "failed to start SSE MCP client", goerr.V("url", baseURL))
	}
	return c, nil
}

// NewInProcess connects to an MCP server running in the same process.
func NewInProcess(ctx context.Context, srv *server.MCPServer, options ...Option) (*Client, error) {
	c := newClient(options...)
	mc, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create in-process MCP client")
	}
	if err := c.start(ctx, mc); err != nil {
		return nil, goerr.Wrap(err, "failed to start in-process MCP client")
	}
	return c, nil
}

func (c *Client) start(ctx context.Context, mc *client.Client) error {
	if err := mc.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP client")
	}

	var initRequest mcp.InitializeRequest
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    c.name,
		Version: c.version,
	}

	resp, err := mc.Initialize(ctx, initRequest)
	if err != nil {
		_ = mc.Close()
		return goerr.Wrap(err, "failed to initialize MCP client")
	}

	c.client = mc
	c.initResult = resp

	shopmate.LoggerFromContext(ctx).Debug("MCP client initialized",
		"server", resp.ServerInfo.Name,
		"version", resp.ServerInfo.Version,
	)
	return nil
}

// ServerName returns the name the server reported on initialization.
func (c *Client) ServerName() string {
	if c.initResult == nil {
		return ""
	}
	return c.initResult.ServerInfo.Name
}

// Specs implements shopmate.ToolSet. It also refreshes the argument schemas
// used by Run.
func (c *Client) Specs(ctx context.Context) ([]shopmate.ToolSpec, error) {
	tools, err := c.listTools(ctx)
	if err != nil {
		return nil, err
	}

	specs := make([]shopmate.ToolSpec, 0, len(tools))
	schemas := make(map[string]*jsonschema.Schema, len(tools))
	names := make([]string, 0, len(tools))

	for _, tool := range tools {
		schema, err := normalizeSchema(tool.InputSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to normalize input schema", goerr.V("tool", tool.Name))
		}

		spec, err := schemaToSpec(tool.Name, tool.Description, schema)
		if err != nil {
			return nil, err
		}
		compiled, err := compileSchema(tool.Name, schema)
		if err != nil {
			return nil, err
		}

		specs = append(specs, spec)
		schemas[tool.Name] = compiled
		names = append(names, tool.Name)
	}

	c.schemaMutex.Lock()
	c.schemas = schemas
	c.schemaMutex.Unlock()

	shopmate.LoggerFromContext(ctx).Debug("found MCP tools", "server", c.ServerName(), "names", names)

	return specs, nil
}

// Run implements shopmate.ToolSet. Arguments are validated against the
// tool's input schema before the call is sent.
func (c *Client) Run(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	logger := shopmate.LoggerFromContext(ctx)
	logger.Debug("call MCP tool", "server", c.ServerName(), "name", name, "args", args)

	schema, err := c.schemaOf(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := validateArguments(schema, args); err != nil {
		return nil, goerr.Wrap(ErrInvalidArguments, err.Error(), goerr.V("tool", name), goerr.V("args", args))
	}

	resp, err := c.callTool(ctx, name, args)
	if err != nil {
		return nil, err
	}

	if resp.IsError {
		return nil, &ToolError{Tool: name, Message: contentText(resp.Content)}
	}

	return contentToMap(resp.Content), nil
}

func (c *Client) schemaOf(ctx context.Context, name string) (*jsonschema.Schema, error) {
	c.schemaMutex.RLock()
	schema, ok := c.schemas[name]
	c.schemaMutex.RUnlock()
	if ok {
		return schema, nil
	}

	if _, err := c.Specs(ctx); err != nil {
		return nil, err
	}

	c.schemaMutex.RLock()
	defer c.schemaMutex.RUnlock()
	if schema, ok := c.schemas[name]; ok {
		return schema, nil
	}
	return nil, goerr.Wrap(ErrUnknownTool, "tool is not provided by the server", goerr.V("tool", name), goerr.V("server", c.ServerName()))
}

func (c *Client) listTools(ctx context.Context) ([]mcp.Tool, error) {
	if c.initResult == nil {
		return nil, goerr.New("MCP client not initialized")
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	return resp.Tools, nil
}

func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.initResult == nil {
		return nil, goerr.New("MCP client not initialized")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool", goerr.V("tool", name))
	}

	return resp, nil
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	return nil
}

// normalizeSchema turns the input schema into plain JSON values so that
// schemas built in-process and received over the wire look the same.
func normalizeSchema(inputSchema mcp.ToolInputSchema) (map[string]any, error) {
	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal input schema")
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal input schema")
	}

	if schema["type"] == nil || schema["type"] == "" {
		schema["type"] = "object"
	}
	if props, ok := schema["properties"].(map[string]any); !ok || props == nil {
		schema["properties"] = map[string]any{}
	}
	if schema["required"] == nil {
		delete(schema, "required")
	}

	return schema, nil
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal input schema", goerr.V("tool", name))
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode input schema", goerr.V("tool", name))
	}

	url := "mem://tools/" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, goerr.Wrap(ErrInvalidInputSchema, err.Error(), goerr.V("tool", name))
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidInputSchema, err.Error(), goerr.V("tool", name))
	}
	return compiled, nil
}

// validateArguments checks args after a JSON round trip, so Go integers and
// JSON numbers validate alike.
func validateArguments(schema *jsonschema.Schema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

func valueOrEmpty[T any](v any) T {
	var empty T
	if v == nil {
		return empty
	}
	if v, ok := v.(T); ok {
		return v
	}
	return empty
}

func schemaToSpec(name, description string, schema map[string]any) (shopmate.ToolSpec, error) {
	spec := shopmate.ToolSpec{
		Name:        name,
		Description: description,
		Parameters:  map[string]*shopmate.Parameter{},
		Required:    stringList(schema["required"]),
	}

	for propName, property := range valueOrEmpty[map[string]any](schema["properties"]) {
		prop, ok := property.(map[string]any)
		if !ok {
			return spec, goerr.Wrap(ErrInvalidInputSchema, "invalid property", goerr.V("tool", name), goerr.V("property", propName))
		}

		param, err := propertyToParameter(prop)
		if err != nil {
			return spec, goerr.Wrap(err, "failed to convert property", goerr.V("tool", name), goerr.V("property", propName))
		}
		spec.Parameters[propName] = param
	}

	return spec, nil
}

func propertyToParameter(prop map[string]any) (*shopmate.Parameter, error) {
	propType := valueOrEmpty[string](prop["type"])
	if propType == "" {
		propType = string(shopmate.TypeString)
	}

	param := &shopmate.Parameter{
		Type:        shopmate.ParameterType(propType),
		Title:       valueOrEmpty[string](prop["title"]),
		Description: valueOrEmpty[string](prop["description"]),
		Enum:        stringList(prop["enum"]),
		Pattern:     valueOrEmpty[string](prop["pattern"]),
		Default:     prop["default"],
	}

	if v, ok := prop["minimum"].(float64); ok {
		param.Minimum = &v
	}
	if v, ok := prop["maximum"].(float64); ok {
		param.Maximum = &v
	}
	if v, ok := prop["minItems"].(float64); ok {
		n := int(v)
		param.MinItems = &n
	}
	if v, ok := prop["maxItems"].(float64); ok {
		n := int(v)
		param.MaxItems = &n
	}

	switch param.Type {
	case shopmate.TypeObject:
		param.Properties = map[string]*shopmate.Parameter{}
		for k, v := range valueOrEmpty[map[string]any](prop["properties"]) {
			nested, ok := v.(map[string]any)
			if !ok {
				return nil, goerr.Wrap(ErrInvalidInputSchema, "invalid nested property", goerr.V("property", k))
			}
			objParam, err := propertyToParameter(nested)
			if err != nil {
				return nil, err
			}
			param.Properties[k] = objParam
		}
		param.Required = stringList(prop["required"])

	case shopmate.TypeArray:
		items, ok := prop["items"].(map[string]any)
		if !ok {
			return nil, goerr.Wrap(ErrInvalidInputSchema, "array without items")
		}
		v, err := propertyToParameter(items)
		if err != nil {
			return nil, err
		}
		param.Items = v
	}

	return param, nil
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, fmt.Sprintf("%v", e))
	}
	return out
}

func textOf(c mcp.Content) (string, bool) {
	switch v := c.(type) {
	case mcp.TextContent:
		return v.Text, true
	case *mcp.TextContent:
		return v.Text, true
	}
	return "", false
}

func contentText(contents []mcp.Content) string {
	var texts []string
	for _, c := range contents {
		if txt, ok := textOf(c); ok {
			texts = append(texts, txt)
		}
	}
	if len(texts) == 0 {
		return "tool returned an error without message"
	}
	return strings.Join(texts, "\n")
}

// contentToMap converts tool result contents into a map for the LLM.
func contentToMap(contents []mcp.Content) map[string]any {
	if len(contents) == 0 {
		return nil
	}

	if len(contents) == 1 {
		txt, ok := textOf(contents[0])
		if !ok {
			return map[string]any{}
		}

		var v any
		if err := json.Unmarshal([]byte(txt), &v); err == nil {
			if mapData, ok := v.(map[string]any); ok {
				return mapData
			}
			return map[string]any{"result": v}
		}
		return map[string]any{"result": txt}
	}

	result := map[string]any{}
	for i, c := range contents {
		if txt, ok := textOf(c); ok {
			result[fmt.Sprintf("content_%d", i+1)] = txt
		}
	}
	return result
}
