package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
	if cfg.Agent.MaxSteps != 6 {
		t.Errorf("max steps = %d", cfg.Agent.MaxSteps)
	}
	if cfg.Tools.Timeout.Std() != 8*time.Second {
		t.Errorf("tool timeout = %s", cfg.Tools.Timeout)
	}
	if cfg.Actions.TTL.Std() != 10*time.Minute {
		t.Errorf("action ttl = %s", cfg.Actions.TTL)
	}
	if cfg.Tools.FallbackToAll {
		t.Error("allowlist fallback should default off")
	}
}

func TestParseOverridesAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  port: 9090
provider:
  name: openai
  model: gpt-4o
agent:
  max_steps: 3
tools:
  allowlists:
    product-qa: [search-docs, get-time]
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.Model != "gpt-4o" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Agent.MaxSteps != 3 {
		t.Errorf("max steps = %d", cfg.Agent.MaxSteps)
	}
	// Unset sections keep their defaults.
	if cfg.Tools.Timeout.Std() != 8*time.Second {
		t.Errorf("tool timeout = %s", cfg.Tools.Timeout)
	}
	got := cfg.Tools.Allowlists["product-qa"]
	if len(got) != 2 || got[0] != "search-docs" {
		t.Errorf("allowlist = %v", got)
	}
}

func TestDurationAcceptsBothNotations(t *testing.T) {
	cfg, err := Parse([]byte("tools:\n  timeout: 1m30s\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tools.Timeout.Std() != 90*time.Second {
		t.Errorf("timeout = %s", cfg.Tools.Timeout)
	}

	// Bare integers are seconds.
	cfg, err = Parse([]byte("tools:\n  timeout: 90\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tools.Timeout.Std() != 90*time.Second {
		t.Errorf("timeout = %s", cfg.Tools.Timeout)
	}
}

func TestParseExpandsEnv(t *testing.T) {
	t.Setenv("TEST_COPILOT_KEY", "sk-from-env")

	cfg, err := Parse([]byte(`
provider:
  api_key: ${TEST_COPILOT_KEY}
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.APIKey != "sk-from-env" {
		t.Errorf("api key = %q", cfg.Provider.APIKey)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
server:
  prot: 8080
`))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("error = %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad provider", "provider:\n  name: bard\n", "provider.name"},
		{"bad steps", "agent:\n  max_steps: -1\n", "max_steps"},
		{"bad timeout", "tools:\n  timeout: -2s\n", "tools.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copilot.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
