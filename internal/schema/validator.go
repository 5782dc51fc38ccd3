// Package schema validates JSON payloads against JSON Schema documents and
// generates schemas for typed Go inputs.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Issue is a single validation failure with a JSON-pointer-ish path.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError carries all issues found in one payload.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "schema validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// Validator compiles and caches JSON Schema documents. Compilation of a
// given document happens once; concurrent use is safe.
type Validator struct {
	cache sync.Map // schema text -> *jsonschema.Schema
}

// NewValidator returns an empty validator.
func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) compile(schemaDoc json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaDoc)
	if cached, ok := v.cache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiled, err := jsonschema.CompileString("schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.cache.Store(key, compiled)
	return compiled, nil
}

// Validate checks payload against schemaDoc. On failure it returns a
// *ValidationError listing every issue; any other error indicates a
// malformed schema or payload.
func (v *Validator) Validate(schemaDoc, payload json.RawMessage) error {
	compiled, err := v.compile(schemaDoc)
	if err != nil {
		return err
	}

	var instance any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := compiled.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{Issues: flatten(ve)}
		}
		return err
	}
	return nil
}

// flatten walks the cause tree and keeps the leaf failures, which carry the
// most specific paths and messages.
func flatten(ve *jsonschema.ValidationError) []Issue {
	if len(ve.Causes) == 0 {
		return []Issue{{Path: ve.InstanceLocation, Message: ve.Message}}
	}
	var issues []Issue
	for _, cause := range ve.Causes {
		issues = append(issues, flatten(cause)...)
	}
	return issues
}
