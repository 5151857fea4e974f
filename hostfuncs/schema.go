package hostfuncs

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schemas returns a JSON Schema for the request of every typed operation,
// keyed by operation name. Raw handlers have no schema.
func (r *HandlerRegistry) Schemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true, // Expand struct definitions inline
		DoNotReference: true,
	}
	out := make(map[string]*jsonschema.Schema, len(r.requests))
	for name, t := range r.requests {
		s := reflector.ReflectFromType(t)
		s.Title = name
		out[name] = s
	}
	return out
}

// SchemasJSON marshals Schemas as an indented JSON object.
func (r *HandlerRegistry) SchemasJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r.Schemas(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schemas: %w", err)
	}
	return data, nil
}
