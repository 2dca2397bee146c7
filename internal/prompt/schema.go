package prompt

// ResponseJSONSchema is the contract every response must satisfy.
// It is compiled by the inference client to validate payloads on receipt.
const ResponseJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "slug", "markdownBody"],
  "properties": {
    "title": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "slug": {"type": "string", "pattern": "^[a-z0-9]+(_[a-z0-9]+)*$"},
    "markdownBody": {"type": "string", "minLength": 1, "pattern": "\\S"}
  }
}`

// ServiceResponseSchema is the response-schema constraint sent to the service.
// Gemini accepts a subset of OpenAPI 3 schema objects, so the slug pattern is
// expressed in the prompt instead and enforced by ResponseJSONSchema.
func ServiceResponseSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "STRING",
				"description": "Short human-readable title for the extracted context",
			},
			"slug": map[string]any{
				"type":        "STRING",
				"description": "Lowercase snake_case filename derived from the title",
			},
			"markdownBody": map[string]any{
				"type":        "STRING",
				"description": "Hierarchical, de-duplicated, third-person context data in Markdown",
			},
		},
		"required":         []string{"title", "slug", "markdownBody"},
		"propertyOrdering": []string{"title", "slug", "markdownBody"},
	}
}
