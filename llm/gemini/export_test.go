package gemini

var (
	ConvertTool     = convertTool
	ConvertInputs   = convertInputs
	ProcessResponse = processResponse
)
