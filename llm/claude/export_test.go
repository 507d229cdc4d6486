package claude

var (
	ConvertTool        = convertTool
	ConvertInputs      = convertInputs
	CreateSystemPrompt = createSystemPrompt
)

type JSONSchema = jsonSchema
