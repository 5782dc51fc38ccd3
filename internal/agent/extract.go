package agent

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONFound indicates model text contained no extractable JSON object.
var ErrNoJSONFound = errors.New("no JSON object found in model output")

// ExtractJSON pulls a JSON object out of model text. Models asked for
// structured output still wrap it in prose or code fences often enough
// that extraction has to be forgiving: try the whole text, then a fenced
// block, then the first balanced object.
func ExtractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrNoJSONFound
	}

	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	if fenced := extractFenced(trimmed); fenced != "" && json.Valid([]byte(fenced)) {
		return json.RawMessage(fenced), nil
	}

	if obj := extractBalanced(trimmed); obj != "" && json.Valid([]byte(obj)) {
		return json.RawMessage(obj), nil
	}

	return nil, ErrNoJSONFound
}

// extractFenced returns the body of the first ```json or ``` code fence.
func extractFenced(s string) string {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(s, marker)
		if start < 0 {
			continue
		}
		body := s[start+len(marker):]
		end := strings.Index(body, "```")
		if end < 0 {
			continue
		}
		candidate := strings.TrimSpace(body[:end])
		if strings.HasPrefix(candidate, "{") {
			return candidate
		}
	}
	return ""
}

// extractBalanced returns the first balanced {...} span, tracking strings
// and escapes so braces inside values don't confuse the count.
func extractBalanced(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
