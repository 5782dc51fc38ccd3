package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const personSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"age": {"type": "integer", "minimum": 0}
	},
	"required": ["name"],
	"additionalProperties": false
}`

func TestValidateAccepts(t *testing.T) {
	v := NewValidator()
	payload := json.RawMessage(`{"name": "ada", "age": 36}`)
	if err := v.Validate(json.RawMessage(personSchema), payload); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantSub string
	}{
		{"missing required", `{"age": 3}`, "name"},
		{"wrong type", `{"name": 42}`, "name"},
		{"extra property", `{"name": "ada", "extra": true}`, "extra"},
		{"negative age", `{"name": "ada", "age": -1}`, "age"},
	}
	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(json.RawMessage(personSchema), json.RawMessage(tt.payload))
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if len(ve.Issues) == 0 {
				t.Fatal("expected at least one issue")
			}
			if !strings.Contains(ve.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", ve.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidateIntegerAcceptsJSONNumbers(t *testing.T) {
	// Numbers decoded as float64 would fail integer checks; the validator
	// must decode with UseNumber.
	v := NewValidator()
	payload := json.RawMessage(`{"name": "ada", "age": 100}`)
	if err := v.Validate(json.RawMessage(personSchema), payload); err != nil {
		t.Fatalf("integer payload rejected: %v", err)
	}
}

func TestValidateBadSchema(t *testing.T) {
	v := NewValidator()
	err := v.Validate(json.RawMessage(`{"type": "nope"}`), json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected compile error for invalid schema")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatal("compile failure must not be a ValidationError")
	}
}

func TestValidateCachesCompiledSchemas(t *testing.T) {
	v := NewValidator()
	doc := json.RawMessage(personSchema)
	for i := 0; i < 3; i++ {
		if err := v.Validate(doc, json.RawMessage(`{"name": "x"}`)); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}
	count := 0
	v.cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count != 1 {
		t.Fatalf("expected 1 cached schema, got %d", count)
	}
}

func TestGenerateSchemaForStruct(t *testing.T) {
	type args struct {
		Query string `json:"query" jsonschema:"required"`
		Limit int    `json:"limit,omitempty"`
	}
	raw, err := For[args]()
	if err != nil {
		t.Fatal(err)
	}

	v := NewValidator()
	if err := v.Validate(raw, json.RawMessage(`{"query": "hello", "limit": 3}`)); err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}
	if err := v.Validate(raw, json.RawMessage(`{"limit": 3}`)); err == nil {
		t.Fatal("missing required field accepted")
	}
}
