package shopmate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultLoopLimit  = 32
	DefaultRetryLimit = 8
)

// Agent runs a conversation with an LLM and dispatches the tool calls the
// LLM requests. The provider session is created on the first Execute and
// kept until Reset, so consecutive calls share history.
type Agent struct {
	llm LLMClient

	agentConfig

	mu      sync.Mutex
	session Session
}

type agentConfig struct {
	loopLimit    int
	retryLimit   int
	systemPrompt string

	tools    []Tool
	toolSets []ToolSet

	loopHook         LoopHook
	messageHook      MessageHook
	toolRequestHook  ToolRequestHook
	toolResponseHook ToolResponseHook
	toolErrorHook    ToolErrorHook
	logger           *slog.Logger
}

func (c *agentConfig) clone() *agentConfig {
	return &agentConfig{
		loopLimit:    c.loopLimit,
		retryLimit:   c.retryLimit,
		systemPrompt: c.systemPrompt,

		tools:    c.tools[:len(c.tools):len(c.tools)],
		toolSets: c.toolSets[:len(c.toolSets):len(c.toolSets)],

		loopHook:         c.loopHook,
		messageHook:      c.messageHook,
		toolRequestHook:  c.toolRequestHook,
		toolResponseHook: c.toolResponseHook,
		toolErrorHook:    c.toolErrorHook,
		logger:           c.logger,
	}
}

// New creates a new agent.
func New(llmClient LLMClient, options ...Option) *Agent {
	a := &Agent{
		llm: llmClient,
		agentConfig: agentConfig{
			loopLimit:  DefaultLoopLimit,
			retryLimit: DefaultRetryLimit,

			loopHook:         defaultLoopHook,
			messageHook:      defaultMessageHook,
			toolRequestHook:  defaultToolRequestHook,
			toolResponseHook: defaultToolResponseHook,
			toolErrorHook:    defaultToolErrorHook,
			logger:           slog.New(slog.DiscardHandler),
		},
	}

	for _, opt := range options {
		opt(&a.agentConfig)
	}

	a.logger.Debug("agent created",
		"loop_limit", a.loopLimit,
		"retry_limit", a.retryLimit,
		"tools_count", len(a.tools),
		"tool_sets_count", len(a.toolSets),
	)

	return a
}

// Option is the type for the options of the agent.
type Option func(*agentConfig)

// WithLoopLimit sets the maximum number of loops in one Execute call. Asking the LLM and running the requested tools is one loop.
func WithLoopLimit(loopLimit int) Option {
	return func(c *agentConfig) {
		c.loopLimit = loopLimit
	}
}

// WithRetryLimit sets the maximum number of tool errors tolerated in one Execute call. When it is exceeded, Execute stops with ErrToolRetryLimitExceeded.
func WithRetryLimit(retryLimit int) Option {
	return func(c *agentConfig) {
		c.retryLimit = retryLimit
	}
}

// WithSystemPrompt sets the system prompt. Default is no system prompt.
func WithSystemPrompt(systemPrompt string) Option {
	return func(c *agentConfig) {
		c.systemPrompt = systemPrompt
	}
}

func WithTools(tools ...Tool) Option {
	return func(c *agentConfig) {
		c.tools = append(c.tools, tools...)
	}
}

func WithToolSets(toolSets ...ToolSet) Option {
	return func(c *agentConfig) {
		c.toolSets = append(c.toolSets, toolSets...)
	}
}

// WithLoopHook sets a callback called at the start of every loop. Returning an error aborts Execute.
func WithLoopHook(callback LoopHook) Option {
	return func(c *agentConfig) {
		c.loopHook = callback
	}
}

// WithMessageHook sets a callback called for every text generated by the LLM. Returning an error aborts Execute.
//
//	shopmate.WithMessageHook(func(ctx context.Context, msg string) error {
//		println(msg)
//		return nil
//	})
func WithMessageHook(callback MessageHook) Option {
	return func(c *agentConfig) {
		c.messageHook = callback
	}
}

// WithToolRequestHook sets a callback called just before a tool runs, even if the tool is not found. Returning an error aborts Execute.
func WithToolRequestHook(callback ToolRequestHook) Option {
	return func(c *agentConfig) {
		c.toolRequestHook = callback
	}
}

// WithToolResponseHook sets a callback called with every successful tool result. Returning an error aborts Execute.
func WithToolResponseHook(callback ToolResponseHook) Option {
	return func(c *agentConfig) {
		c.toolResponseHook = callback
	}
}

// WithToolErrorHook sets a callback called when a tool fails. Return the error to abort Execute, or nil to hand the error to the LLM.
//
//	shopmate.WithToolErrorHook(func(ctx context.Context, err error, call shopmate.FunctionCall) error {
//		if errors.Is(err, someFatalError) {
//			return err
//		}
//		return nil
//	})
func WithToolErrorHook(callback ToolErrorHook) Option {
	return func(c *agentConfig) {
		c.toolErrorHook = callback
	}
}

// WithLogger sets the logger. Default is discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *agentConfig) {
		c.logger = logger
	}
}

// Reset drops the current LLM session. The next Execute starts a new
// conversation without history.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = nil
}

// Execute sends prompt to the LLM and runs tool calls until the LLM answers
// without requesting any tool. Options override the agent configuration for
// this call only.
func (a *Agent) Execute(ctx context.Context, prompt string, options ...Option) (*ExecuteResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.agentConfig.clone()
	for _, opt := range options {
		opt(cfg)
	}

	logger := cfg.logger.With("request_id", uuid.New().String())
	ctx = CtxWithLogger(ctx, logger)
	logger.Info("starting execution", "prompt", prompt, "has_session", a.session != nil)

	toolMap, toolList, err := setupTools(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if a.session == nil {
		sessionOptions := []SessionOption{
			WithSessionSystemPrompt(cfg.systemPrompt),
		}
		if len(toolList) > 0 {
			sessionOptions = append(sessionOptions, WithSessionTools(toolList...))
		}

		ssn, err := a.llm.NewSession(ctx, sessionOptions...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create LLM session")
		}
		a.session = ssn
	}

	resp, err := a.run(ctx, cfg, prompt, toolMap)
	if err != nil {
		// The provider history may end with tool calls that never got a
		// response, and providers reject any further turn on it.
		a.session = nil
		return nil, err
	}
	return resp, nil
}

// run drives one turn on a.session. The caller holds a.mu.
func (a *Agent) run(ctx context.Context, cfg *agentConfig, prompt string, toolMap map[string]Tool) (*ExecuteResponse, error) {
	logger := LoggerFromContext(ctx)

	resp := NewExecuteResponse()
	input := []Input{Text(prompt)}
	toolErrors := 0

	for i := 0; i < cfg.loopLimit; i++ {
		if err := cfg.loopHook(ctx, i, input); err != nil {
			return nil, err
		}

		logger.Debug("send input", "input", input, "loop", i)

		output, err := a.session.GenerateContent(ctx, input...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to generate content", goerr.V("loop", i))
		}
		if !output.HasData() {
			logger.Warn("LLM returned neither text nor function call", "loop", i)
		}
		resp.Texts = append(resp.Texts, output.Texts...)

		newInput, errCount, err := handleResponse(ctx, cfg, output, toolMap)
		if err != nil {
			return nil, err
		}

		toolErrors += errCount
		if toolErrors > cfg.retryLimit {
			return nil, goerr.Wrap(ErrToolRetryLimitExceeded, "too many tool errors",
				goerr.V("errors", toolErrors),
				goerr.V("retry_limit", cfg.retryLimit),
			)
		}

		if len(newInput) == 0 {
			return resp, nil
		}
		input = newInput
	}

	return nil, goerr.Wrap(ErrLoopLimitExceeded, "session stopped", goerr.V("loop_limit", cfg.loopLimit))
}

func setupTools(ctx context.Context, cfg *agentConfig) (map[string]Tool, []Tool, error) {
	toolMap, err := buildToolMap(ctx, cfg.tools, cfg.toolSets)
	if err != nil {
		return nil, nil, err
	}

	toolList := make([]Tool, 0, len(toolMap))
	toolNames := make([]string, 0, len(toolMap))
	for _, tool := range toolMap {
		toolList = append(toolList, tool)
		toolNames = append(toolNames, tool.Spec().Name)
	}
	LoggerFromContext(ctx).Debug("tool list", "names", toolNames)

	return toolMap, toolList, nil
}

// handleResponse runs the function calls in output and returns the responses
// to send back to the LLM, with the number of calls that failed.
func handleResponse(ctx context.Context, cfg *agentConfig, output *Response, toolMap map[string]Tool) ([]Input, int, error) {
	logger := LoggerFromContext(ctx)

	newInput := make([]Input, 0, len(output.FunctionCalls))
	errCount := 0

	for _, text := range output.Texts {
		if err := cfg.messageHook(ctx, text); err != nil {
			return nil, 0, goerr.Wrap(err, "failed to call MessageHook")
		}
	}

	for _, call := range output.FunctionCalls {
		logger.Debug("received tool request", "tool", call.Name, "args", call.Arguments)

		if err := cfg.toolRequestHook(ctx, *call); err != nil {
			return nil, 0, goerr.Wrap(err, "failed to call ToolRequestHook")
		}

		tool, ok := toolMap[call.Name]
		if !ok {
			logger.Info("tool not found", "call", call)
			errCount++
			newInput = append(newInput, FunctionResponse{
				ID:    call.ID,
				Name:  call.Name,
				Error: goerr.New(call.Name+" is not found", goerr.V("call", call)),
			})
			continue
		}

		result, err := tool.Run(ctx, call.Arguments)
		if err != nil {
			if cbErr := cfg.toolErrorHook(ctx, err, *call); cbErr != nil {
				return nil, 0, goerr.Wrap(cbErr, "failed to call ToolErrorHook")
			}

			logger.Info("tool error", "call", call, "error", err)
			errCount++
			newInput = append(newInput, FunctionResponse{
				ID:    call.ID,
				Name:  call.Name,
				Error: goerr.Wrap(err, call.Name+" failed to run", goerr.V("call", call)),
			})
			continue
		}

		if cbErr := cfg.toolResponseHook(ctx, *call, result); cbErr != nil {
			return nil, 0, goerr.Wrap(cbErr, "failed to call ToolResponseHook")
		}

		logger.Info("tool response", "call", call, "result", result)

		// Normalize to a generic JSON structure for provider encoders.
		if result != nil {
			marshaled, err := json.Marshal(result)
			if err != nil {
				return nil, 0, goerr.Wrap(err, "failed to marshal result")
			}
			var unmarshaled map[string]any
			if err := json.Unmarshal(marshaled, &unmarshaled); err != nil {
				return nil, 0, goerr.Wrap(err, "failed to unmarshal result")
			}
			result = unmarshaled
		}

		newInput = append(newInput, FunctionResponse{
			ID:   call.ID,
			Name: call.Name,
			Data: result,
		})
	}

	return newInput, errCount, nil
}

type toolWrapper struct {
	spec ToolSpec
	run  func(ctx context.Context, args map[string]any) (map[string]any, error)
}

func (x *toolWrapper) Spec() ToolSpec {
	return x.spec
}

func (x *toolWrapper) Run(ctx context.Context, args map[string]any) (map[string]any, error) {
	return x.run(ctx, args)
}

// buildToolMap maps every tool name to the tool or tool set that owns it.
func buildToolMap(ctx context.Context, tools []Tool, toolSets []ToolSet) (map[string]Tool, error) {
	toolMap := map[string]Tool{}

	for _, tool := range tools {
		spec := tool.Spec()
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		if _, ok := toolMap[spec.Name]; ok {
			return nil, goerr.Wrap(ErrToolNameConflict, "tool name conflict (tools)", goerr.V("tool_name", spec.Name))
		}
		toolMap[spec.Name] = tool
	}

	for _, toolSet := range toolSets {
		specs, err := toolSet.Specs(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get tool set specs")
		}

		for _, spec := range specs {
			if _, ok := toolMap[spec.Name]; ok {
				return nil, goerr.Wrap(ErrToolNameConflict, "tool name conflict (tool sets)", goerr.V("tool_name", spec.Name))
			}
			ts, name := toolSet, spec.Name
			toolMap[spec.Name] = &toolWrapper{
				spec: spec,
				run: func(ctx context.Context, args map[string]any) (map[string]any, error) {
					return ts.Run(ctx, name, args)
				},
			}
		}
	}

	return toolMap, nil
}
