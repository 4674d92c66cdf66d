package agent

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ResponseSchema declares the structural shape a completion must conform to.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// NewResponseSchema reflects a JSON schema from the exemplar value. Strict
// mode (no additional properties, inlined definitions) keeps the schema
// acceptable to the structured-output API.
func NewResponseSchema(name, description string, exemplar any) ResponseSchema {
	return ResponseSchema{
		Name:        name,
		Description: description,
		Schema:      reflectSchema(exemplar),
	}
}

func reflectSchema(exemplar any) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(exemplar)

	// The reflector output is converted through JSON so the transport layer
	// can treat it as a plain parameter map.
	raw, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}
