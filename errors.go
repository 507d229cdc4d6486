package shopmate

import "errors"

var (
	ErrInvalidTool      = errors.New("invalid tool specification")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrToolNameConflict = errors.New("tool name conflict")

	// ErrLoopLimitExceeded is returned by Execute when the LLM keeps calling
	// tools beyond the loop limit.
	ErrLoopLimitExceeded = errors.New("loop limit exceeded")

	// ErrToolRetryLimitExceeded is returned by Execute when tool errors in a
	// single turn exceed the retry limit.
	ErrToolRetryLimitExceeded = errors.New("tool retry limit exceeded")
)
