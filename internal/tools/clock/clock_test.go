package clock

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/haasonsaas/copilot/internal/schema"
)

func TestClockDefaultsToUTC(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	def := Definition(func() time.Time { return fixed })

	raw, err := def.Run(context.Background(), nil, json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Timezone != "UTC" {
		t.Errorf("timezone = %q", out.Timezone)
	}
	if out.Unix != fixed.Unix() {
		t.Errorf("unix = %d, want %d", out.Unix, fixed.Unix())
	}
}

func TestClockHonorsTimezone(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	def := Definition(func() time.Time { return fixed })

	raw, err := def.Run(context.Background(), nil, json.RawMessage(`{"timezone":"America/New_York"}`))
	if err != nil {
		t.Fatal(err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Timezone != "America/New_York" {
		t.Errorf("timezone = %q", out.Timezone)
	}
	if out.Unix != fixed.Unix() {
		t.Error("instant changed when converting timezone")
	}
}

func TestClockRejectsUnknownTimezone(t *testing.T) {
	def := Definition(nil)
	if _, err := def.Run(context.Background(), nil, json.RawMessage(`{"timezone":"Mars/Olympus"}`)); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestClockSchemaAcceptsEmptyArgs(t *testing.T) {
	v := schema.NewValidator()
	if err := v.Validate(inputSchema, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("empty args rejected: %v", err)
	}
}
