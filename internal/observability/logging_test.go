package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	logger.Info(context.Background(), "provider configured",
		"detail", "api_key=sk-ant-"+strings.Repeat("a", 100),
	)

	out := buf.String()
	if strings.Contains(out, "sk-ant-") {
		t.Fatalf("log leaked API key: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("expected redaction marker in %s", out)
	}
}

func TestLoggerRedactsSensitiveMapKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})

	logger.Info(context.Background(), "request", "params", map[string]any{
		"query": "hello",
		"token": "abcd1234",
	})

	out := buf.String()
	if strings.Contains(out, "abcd1234") {
		t.Fatalf("log leaked token value: %s", out)
	}
	if !strings.Contains(out, "hello") {
		t.Fatalf("benign value missing from %s", out)
	}
}

func TestLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUserID(ctx, "user-1")
	ctx = WithTenantID(ctx, "tenant-a")
	ctx = WithAgentID(ctx, "product-qa")
	logger.Info(ctx, "run started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output not JSON: %v", err)
	}
	for key, want := range map[string]string{
		"request_id": "req-123",
		"user_id":    "user-1",
		"tenant_id":  "tenant-a",
		"agent_id":   "product-qa",
	} {
		if record[key] != want {
			t.Errorf("%s = %v, want %s", key, record[key], want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info(context.Background(), "ignored")
	if buf.Len() != 0 {
		t.Fatalf("info record written despite warn level: %s", buf.String())
	}
	logger.Warn(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Fatal("warn record not written")
	}
}

func TestGetTraceIDWithoutSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}
