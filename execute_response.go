package shopmate

import "strings"

// ExecuteResponse is the outcome of one Execute call.
type ExecuteResponse struct {
	// Texts holds every text the LLM generated during the call, in order.
	Texts []string
}

func NewExecuteResponse(texts ...string) *ExecuteResponse {
	if texts == nil {
		texts = []string{}
	}
	return &ExecuteResponse{
		Texts: texts,
	}
}

// String joins the non-empty texts with newlines.
func (r *ExecuteResponse) String() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Texts))
	for _, s := range r.Texts {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// IsEmpty returns true if the response has no texts or all texts are empty
func (r *ExecuteResponse) IsEmpty() bool {
	if r == nil || len(r.Texts) == 0 {
		return true
	}
	for _, s := range r.Texts {
		if s != "" {
			return false
		}
	}
	return true
}
