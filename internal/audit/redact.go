package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// SummaryLimit caps the length of audit summaries.
const SummaryLimit = 240

const (
	maxStringLen   = 120
	maxObjectKeys  = 6
	maxArrayItems  = 3
	maxDepth       = 2
	redactedMarker = "[redacted]"
)

// sensitiveField matches key names whose values must never reach logs or
// summaries.
var sensitiveField = regexp.MustCompile(`(?i)(token|secret|password|api[_-]?key)`)

// SensitiveKey reports whether a field name looks like a credential.
func SensitiveKey(key string) bool {
	return sensitiveField.MatchString(key)
}

// Summarize renders a JSON payload as a compact, redacted, depth-limited
// string capped at limit characters. A limit of 0 uses SummaryLimit.
// Sensitive field values are replaced, long strings truncated, objects
// capped at a handful of entries, and nested arrays collapsed to their
// length.
func Summarize(raw json.RawMessage, limit int) string {
	if limit <= 0 {
		limit = SummaryLimit
	}
	if len(raw) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return clip(string(raw), limit)
	}
	return clip(render(value, "", 0), limit)
}

func render(value any, key string, depth int) string {
	if key != "" && SensitiveKey(key) {
		return redactedMarker
	}
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return truncString(v)
	case bool:
		return fmt.Sprintf("%t", v)
	case float64:
		return trimFloat(v)
	case map[string]any:
		if depth >= maxDepth {
			return fmt.Sprintf("{object keys=%d}", len(v))
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		omitted := 0
		if len(keys) > maxObjectKeys {
			omitted = len(keys) - maxObjectKeys
			keys = keys[:maxObjectKeys]
		}
		parts := make([]string, 0, len(keys)+1)
		for _, k := range keys {
			parts = append(parts, k+"="+render(v[k], k, depth+1))
		}
		if omitted > 0 {
			parts = append(parts, fmt.Sprintf("…+%d", omitted))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		if depth > 1 {
			return fmt.Sprintf("[array length=%d]", len(v))
		}
		items := v
		omitted := 0
		if len(items) > maxArrayItems {
			omitted = len(items) - maxArrayItems
			items = items[:maxArrayItems]
		}
		parts := make([]string, 0, len(items)+1)
		for _, item := range items {
			parts = append(parts, render(item, "", depth+1))
		}
		if omitted > 0 {
			parts = append(parts, fmt.Sprintf("…+%d", omitted))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncString(s string) string {
	return truncate(s, maxStringLen)
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func clip(s string, limit int) string {
	return truncate(s, limit)
}

// truncate caps s at limit bytes without splitting a UTF-8 rune, appending
// an ellipsis when anything was cut.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// RedactValue returns a deep copy of a decoded JSON value with sensitive
// field values replaced. Used when structured (non-string) redacted
// payloads are needed.
func RedactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if SensitiveKey(k) {
				out[k] = redactedMarker
				continue
			}
			out[k] = RedactValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RedactValue(item)
		}
		return out
	default:
		return value
	}
}
