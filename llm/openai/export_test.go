package openai

var (
	ConvertTool    = convertTool
	ConvertInputs  = convertInputs
	ConvertMessage = convertMessage
)
