package shopmate

import "context"

type (
	LoopHook         func(ctx context.Context, loop int, input []Input) error
	MessageHook      func(ctx context.Context, msg string) error
	ToolRequestHook  func(ctx context.Context, call FunctionCall) error
	ToolResponseHook func(ctx context.Context, call FunctionCall, response map[string]any) error
	ToolErrorHook    func(ctx context.Context, err error, call FunctionCall) error
)

func defaultLoopHook(ctx context.Context, loop int, input []Input) error {
	return nil
}

func defaultMessageHook(ctx context.Context, msg string) error {
	return nil
}

func defaultToolRequestHook(ctx context.Context, call FunctionCall) error {
	return nil
}

func defaultToolResponseHook(ctx context.Context, call FunctionCall, response map[string]any) error {
	return nil
}

func defaultToolErrorHook(ctx context.Context, err error, call FunctionCall) error {
	return nil
}
