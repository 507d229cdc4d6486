package mcp

var (
	ContentToMap    = contentToMap
	NormalizeSchema = normalizeSchema
	SchemaToSpec    = schemaToSpec
)
