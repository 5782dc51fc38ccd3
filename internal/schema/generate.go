package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// For generates a JSON Schema document for a Go struct type. Tools with
// typed inputs derive their input schemas from their argument structs so
// the schema and the decode target cannot drift apart.
func For[T any]() (json.RawMessage, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var zero T
	doc := reflector.Reflect(&zero)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal generated schema: %w", err)
	}
	return raw, nil
}

// MustFor is For but panics on failure. Intended for package-level schema
// variables where a failure is a programming error.
func MustFor[T any]() json.RawMessage {
	raw, err := For[T]()
	if err != nil {
		panic(err)
	}
	return raw
}
