package shopmate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/shopmate"
	"github.com/m-mizutani/shopmate/mock"
)

// newMockClient creates a new LLMClientMock whose sessions answer with generateContentFunc
func newMockClient(generateContentFunc func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error)) *mock.LLMClientMock {
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
			return &mock.SessionMock{
				GenerateContentFunc: generateContentFunc,
			}, nil
		},
	}
}

// callOnce requests the tool on the first turn and answers with text once
// any function response comes back.
func callOnce(name string, args map[string]any) func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
	return func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
		if len(input) > 0 {
			if _, ok := input[0].(shopmate.FunctionResponse); ok {
				return &shopmate.Response{Texts: []string{"done"}}, nil
			}
		}
		return &shopmate.Response{
			Texts: []string{"calling"},
			FunctionCalls: []*shopmate.FunctionCall{
				{ID: "call_1", Name: name, Arguments: args},
			},
		}, nil
	}
}

func newTool(name string, run func(ctx context.Context, args map[string]any) (map[string]any, error)) *mock.ToolMock {
	return &mock.ToolMock{
		SpecFunc: func() shopmate.ToolSpec {
			return shopmate.ToolSpec{
				Name:        name,
				Description: "test tool " + name,
				Parameters: map[string]*shopmate.Parameter{
					"item_id": {Type: shopmate.TypeString},
				},
			}
		},
		RunFunc: run,
	}
}

func TestAgentExecute(t *testing.T) {
	t.Run("returns texts without tool call", func(t *testing.T) {
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			return &shopmate.Response{Texts: []string{"hello"}}, nil
		})

		agent := shopmate.New(client)
		resp, err := agent.Execute(t.Context(), "hi")
		gt.NoError(t, err)
		gt.Equal(t, resp.String(), "hello")
	})

	t.Run("runs requested tool and returns result to LLM", func(t *testing.T) {
		var received []shopmate.Input
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			received = append(received, input...)
			return callOnce("get_item", map[string]any{"item_id": "1"})(ctx, input...)
		})

		tool := newTool("get_item", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"id": args["item_id"], "price": 19.99}, nil
		})

		agent := shopmate.New(client, shopmate.WithTools(tool))
		resp, err := agent.Execute(t.Context(), "show item 1")
		gt.NoError(t, err)
		gt.Equal(t, resp.Texts, []string{"calling", "done"})
		gt.Equal(t, len(tool.RunCalls()), 1)

		gt.Equal(t, len(received), 2)
		fr, ok := received[1].(shopmate.FunctionResponse)
		gt.True(t, ok)
		gt.Equal(t, fr.ID, "call_1")
		gt.Equal(t, fr.Data["id"], "1")
		gt.NoError(t, fr.Error)
	})

	t.Run("unknown tool is reported to LLM", func(t *testing.T) {
		var fr shopmate.FunctionResponse
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			if len(input) > 0 {
				if v, ok := input[0].(shopmate.FunctionResponse); ok {
					fr = v
				}
			}
			return callOnce("no_such_tool", nil)(ctx, input...)
		})

		agent := shopmate.New(client)
		_, err := agent.Execute(t.Context(), "do something")
		gt.NoError(t, err)
		gt.Equal(t, fr.Name, "no_such_tool")
		gt.Error(t, fr.Error)
	})

	t.Run("tool error is passed to LLM", func(t *testing.T) {
		var fr shopmate.FunctionResponse
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			if len(input) > 0 {
				if v, ok := input[0].(shopmate.FunctionResponse); ok {
					fr = v
				}
			}
			return callOnce("add_to_cart", map[string]any{"item_id": "99"})(ctx, input...)
		})

		tool := newTool("add_to_cart", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("Item 99 not found")
		})

		agent := shopmate.New(client, shopmate.WithTools(tool))
		resp, err := agent.Execute(t.Context(), "add item 99")
		gt.NoError(t, err)
		gt.Equal(t, resp.String(), "calling\ndone")
		gt.Error(t, fr.Error)
		gt.Equal(t, fr.Payload()["error"], any(fr.Error.Error()))
		gt.S(t, fr.Error.Error()).Contains("Item 99 not found")
	})

	t.Run("session is kept across calls", func(t *testing.T) {
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			return &shopmate.Response{Texts: []string{"ok"}}, nil
		})

		agent := shopmate.New(client)
		_, err := agent.Execute(t.Context(), "first")
		gt.NoError(t, err)
		_, err = agent.Execute(t.Context(), "second")
		gt.NoError(t, err)
		gt.Equal(t, len(client.NewSessionCalls()), 1)

		agent.Reset()
		_, err = agent.Execute(t.Context(), "third")
		gt.NoError(t, err)
		gt.Equal(t, len(client.NewSessionCalls()), 2)
	})

	t.Run("LLM error aborts", func(t *testing.T) {
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			return nil, errors.New("provider down")
		})

		agent := shopmate.New(client)
		_, err := agent.Execute(t.Context(), "hi")
		gt.Error(t, err)
	})
}

func TestAgentOptions(t *testing.T) {
	t.Run("WithLoopLimit", func(t *testing.T) {
		loopCount := 0
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			loopCount++
			return &shopmate.Response{
				FunctionCalls: []*shopmate.FunctionCall{
					{Name: "test_tool", Arguments: map[string]any{}},
				},
			}, nil
		})

		tool := newTool("test_tool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"result": "test"}, nil
		})

		agent := shopmate.New(client, shopmate.WithLoopLimit(5), shopmate.WithTools(tool))
		_, err := agent.Execute(t.Context(), "loop forever")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, shopmate.ErrLoopLimitExceeded))
		gt.Equal(t, loopCount, 5)
	})

	t.Run("WithRetryLimit", func(t *testing.T) {
		runCount := 0
		client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
			if len(input) > 0 {
				if resp, ok := input[0].(shopmate.FunctionResponse); ok && resp.Error == nil {
					return &shopmate.Response{Texts: []string{"success"}}, nil
				}
			}
			return &shopmate.Response{
				FunctionCalls: []*shopmate.FunctionCall{
					{Name: "test_tool", Arguments: map[string]any{}},
				},
			}, nil
		})

		flaky := func(failures int) *mock.ToolMock {
			return newTool("test_tool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
				runCount++
				if runCount <= failures {
					return nil, fmt.Errorf("test error")
				}
				return map[string]any{"result": "test"}, nil
			})
		}

		t.Run("recovers within limit", func(t *testing.T) {
			runCount = 0
			agent := shopmate.New(client, shopmate.WithRetryLimit(5), shopmate.WithTools(flaky(2)))
			resp, err := agent.Execute(t.Context(), "test")
			gt.NoError(t, err)
			gt.Equal(t, runCount, 3)
			gt.Equal(t, resp.String(), "success")
		})

		t.Run("stops beyond limit", func(t *testing.T) {
			runCount = 0
			agent := shopmate.New(client, shopmate.WithRetryLimit(1), shopmate.WithTools(flaky(10)))
			_, err := agent.Execute(t.Context(), "test")
			gt.Error(t, err)
			gt.True(t, errors.Is(err, shopmate.ErrToolRetryLimitExceeded))
			gt.Equal(t, runCount, 2)
		})
	})

	t.Run("WithSystemPrompt and tools reach the session", func(t *testing.T) {
		client := &mock.LLMClientMock{
			NewSessionFunc: func(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
				cfg := shopmate.NewSessionConfig(options...)
				gt.Equal(t, cfg.SystemPrompt(), "system prompt")
				gt.Equal(t, len(cfg.Tools()), 1)
				gt.Equal(t, cfg.Tools()[0].Spec().Name, "test_tool")
				return &mock.SessionMock{
					GenerateContentFunc: func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
						return &shopmate.Response{Texts: []string{"ok"}}, nil
					},
				}, nil
			},
		}

		tool := newTool("test_tool", nil)
		agent := shopmate.New(client, shopmate.WithSystemPrompt("system prompt"), shopmate.WithTools(tool))
		_, err := agent.Execute(t.Context(), "hi")
		gt.NoError(t, err)
		gt.Equal(t, len(client.NewSessionCalls()), 1)
	})
}

func TestAgentHooks(t *testing.T) {
	client := newMockClient(callOnce("test_tool", map[string]any{"arg1": "value1"}))

	t.Run("ToolRequestHook and ToolResponseHook", func(t *testing.T) {
		var requested, responded bool
		tool := newTool("test_tool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return map[string]any{"result": "test_result"}, nil
		})

		agent := shopmate.New(client,
			shopmate.WithTools(tool),
			shopmate.WithToolRequestHook(func(ctx context.Context, call shopmate.FunctionCall) error {
				requested = true
				gt.Equal(t, call.Arguments["arg1"], "value1")
				return nil
			}),
			shopmate.WithToolResponseHook(func(ctx context.Context, call shopmate.FunctionCall, response map[string]any) error {
				responded = true
				gt.Equal(t, response["result"], "test_result")
				return nil
			}),
		)

		_, err := agent.Execute(t.Context(), "test")
		gt.NoError(t, err)
		gt.True(t, requested)
		gt.True(t, responded)
	})

	t.Run("ToolErrorHook aborts when returning error", func(t *testing.T) {
		fatal := errors.New("fatal")
		tool := newTool("test_tool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, fatal
		})

		agent := shopmate.New(client,
			shopmate.WithTools(tool),
			shopmate.WithToolErrorHook(func(ctx context.Context, err error, call shopmate.FunctionCall) error {
				return err
			}),
		)

		_, err := agent.Execute(t.Context(), "test")
		gt.True(t, errors.Is(err, fatal))
	})

	t.Run("MessageHook", func(t *testing.T) {
		var messages []string
		tool := newTool("test_tool", func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return nil, nil
		})

		agent := shopmate.New(client,
			shopmate.WithTools(tool),
			shopmate.WithMessageHook(func(ctx context.Context, msg string) error {
				messages = append(messages, msg)
				return nil
			}),
		)

		_, err := agent.Execute(t.Context(), "test")
		gt.NoError(t, err)
		gt.Equal(t, messages, []string{"calling", "done"})
	})
}

func TestAgentToolSets(t *testing.T) {
	newToolSet := func(names ...string) *mock.ToolSetMock {
		return &mock.ToolSetMock{
			SpecsFunc: func(ctx context.Context) ([]shopmate.ToolSpec, error) {
				specs := make([]shopmate.ToolSpec, 0, len(names))
				for _, name := range names {
					specs = append(specs, shopmate.ToolSpec{Name: name})
				}
				return specs, nil
			},
			RunFunc: func(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
				return map[string]any{"tool": name}, nil
			},
		}
	}

	t.Run("routes call to owning tool set", func(t *testing.T) {
		shopping := newToolSet("list_items", "get_cart")
		payment := newToolSet("authenticate_user", "complete_checkout")

		client := newMockClient(callOnce("authenticate_user", map[string]any{"identifier": "user1"}))
		agent := shopmate.New(client, shopmate.WithToolSets(shopping, payment))

		_, err := agent.Execute(t.Context(), "log me in")
		gt.NoError(t, err)
		gt.Equal(t, len(shopping.RunCalls()), 0)
		gt.Equal(t, len(payment.RunCalls()), 1)
		gt.Equal(t, payment.RunCalls()[0].Name, "authenticate_user")
		gt.Equal(t, payment.RunCalls()[0].Args["identifier"], "user1")
	})

	t.Run("name conflict is rejected", func(t *testing.T) {
		client := newMockClient(callOnce("get_cart", nil))
		agent := shopmate.New(client, shopmate.WithToolSets(newToolSet("get_cart"), newToolSet("get_cart")))

		_, err := agent.Execute(t.Context(), "cart")
		gt.True(t, errors.Is(err, shopmate.ErrToolNameConflict))
	})
}

// strictSession rejects new text while earlier function calls are still
// unanswered, as OpenAI and Claude do.
type strictSession struct {
	pending int
	reply   func(input []shopmate.Input) *shopmate.Response
}

func (s *strictSession) GenerateContent(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
	for _, in := range input {
		switch in.(type) {
		case shopmate.Text:
			if s.pending > 0 {
				return nil, errors.New("400: tool_calls must be followed by tool messages")
			}
		case shopmate.FunctionResponse:
			s.pending--
		}
	}

	resp := s.reply(input)
	s.pending += len(resp.FunctionCalls)
	return resp, nil
}

func TestAgentFailedTurn(t *testing.T) {
	reply := func(input []shopmate.Input) *shopmate.Response {
		if text, ok := input[0].(shopmate.Text); ok && text == "hello" {
			return &shopmate.Response{Texts: []string{"Hi! How can I help?"}}
		}
		return &shopmate.Response{
			FunctionCalls: []*shopmate.FunctionCall{
				{ID: "call_get_item", Name: "get_item", Arguments: map[string]any{"item_id": "99"}},
			},
		}
	}
	client := &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...shopmate.SessionOption) (shopmate.Session, error) {
			return &strictSession{reply: reply}, nil
		},
	}
	tool := newTool("get_item", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		return nil, errors.New("item 99 not found")
	})

	agent := shopmate.New(client, shopmate.WithTools(tool), shopmate.WithRetryLimit(1))

	_, err := agent.Execute(t.Context(), "show me item 99")
	gt.True(t, errors.Is(err, shopmate.ErrToolRetryLimitExceeded))

	// the next turns start on a clean session
	for range 2 {
		resp, err := agent.Execute(t.Context(), "hello")
		gt.NoError(t, err)
		gt.Equal(t, resp.String(), "Hi! How can I help?")
	}
	gt.Equal(t, len(client.NewSessionCalls()), 2)
}

func TestAgentEmptyResponse(t *testing.T) {
	gt.False(t, (&shopmate.Response{}).HasData())
	gt.True(t, (&shopmate.Response{Texts: []string{"hi"}}).HasData())
	gt.True(t, (&shopmate.Response{FunctionCalls: []*shopmate.FunctionCall{{Name: "get_cart"}}}).HasData())

	client := newMockClient(func(ctx context.Context, input ...shopmate.Input) (*shopmate.Response, error) {
		return &shopmate.Response{}, nil
	})
	resp, err := shopmate.New(client).Execute(t.Context(), "hi")
	gt.NoError(t, err)
	gt.True(t, resp.IsEmpty())
}

func TestAgentLoopHook(t *testing.T) {
	stop := errors.New("stop")
	var loops []int
	runs := 0

	client := newMockClient(callOnce("get_item", map[string]any{"item_id": "1"}))
	tool := newTool("get_item", func(ctx context.Context, args map[string]any) (map[string]any, error) {
		runs++
		return map[string]any{"id": "1"}, nil
	})

	agent := shopmate.New(client,
		shopmate.WithTools(tool),
		shopmate.WithLoopHook(func(ctx context.Context, loop int, input []shopmate.Input) error {
			loops = append(loops, loop)
			if loop == 1 {
				return stop
			}
			return nil
		}),
	)

	_, err := agent.Execute(t.Context(), "item 1")
	gt.True(t, errors.Is(err, stop))
	gt.Equal(t, loops, []int{0, 1})
	gt.Equal(t, runs, 1)

	// aborted turn does not leave the session behind
	_, _ = agent.Execute(t.Context(), "again")
	gt.Equal(t, len(client.NewSessionCalls()), 2)
}
