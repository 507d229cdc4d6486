// Package mcpserver holds the pieces shared by the shopping and payment MCP
// servers: argument decoding, result encoding and the transports.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Args are the decoded arguments of one tool call.
type Args map[string]any

func invalid(format string, v ...any) error {
	return &argError{msg: fmt.Sprintf(format, v...)}
}

type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }
func (e *argError) Unwrap() error { return ErrInvalidArgument }

// String returns a required string argument.
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", invalid("Missing required argument: %s", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalid("Argument %s must be a string", name)
	}
	return s, nil
}

// Int returns an integer argument, or def when it is absent.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, invalid("Argument %s must be an integer", name)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, invalid("Argument %s must be an integer", name)
		}
		return int(i), nil
	}
	return 0, invalid("Argument %s must be an integer", name)
}

// Decode converts the argument name into out through JSON.
func (a Args) Decode(name string, out any) error {
	v, ok := a[name]
	if !ok || v == nil {
		return invalid("Missing required argument: %s", name)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return invalid("Argument %s is malformed", name)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalid("Argument %s is malformed: %s", name, err.Error())
	}
	return nil
}

// HandlerFunc is the body of a tool. The returned value is sent as JSON text.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Handler adapts fn to an MCP tool handler. Errors that match one of visible
// (or an argument error) are reported to the caller as a tool error with
// their message. Any other error is logged and replaced with a generic
// message.
func Handler(logger *slog.Logger, name string, fn HandlerFunc, visible ...error) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := Args(req.Params.Arguments)
		if args == nil {
			args = Args{}
		}

		result, err := fn(ctx, args)
		if err != nil {
			if isVisible(err, visible) {
				logger.Info("tool rejected", "tool", name, "error", err.Error())
				return mcp.NewToolResultError(err.Error()), nil
			}
			logger.Error("tool failed", "tool", name, "error", err)
			return mcp.NewToolResultError("Internal error while running " + name), nil
		}

		return JSONResult(result)
	}
}

func isVisible(err error, visible []error) bool {
	if errors.Is(err, ErrInvalidArgument) {
		return true
	}
	for _, target := range visible {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// JSONResult encodes v as the text content of a tool result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return mcp.NewToolResultText(string(raw)), nil
}
