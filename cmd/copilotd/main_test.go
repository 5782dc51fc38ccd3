package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := buildRootCmd()

	want := []string{"serve", "agents", "tools"}
	for _, name := range want {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing %q subcommand", name)
		}
	}
}

func TestAgentsList(t *testing.T) {
	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"agents", "list"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"product-qa", "docs-copilot", "ticket-handler"} {
		if !strings.Contains(out.String(), id) {
			t.Errorf("listing missing %q:\n%s", id, out.String())
		}
	}
}

func TestToolsList(t *testing.T) {
	root := buildRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"tools", "list"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"get-time", "calculate", "search-docs", "create-ticket"} {
		if !strings.Contains(out.String(), id) {
			t.Errorf("listing missing %q:\n%s", id, out.String())
		}
	}
	for _, name := range []string{"Get Time", "Calculator", "Search Docs", "Create Ticket"} {
		if !strings.Contains(out.String(), name) {
			t.Errorf("listing missing tool name %q:\n%s", name, out.String())
		}
	}
	// The write tool is flagged as confirmation gated.
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, "create-ticket") && !strings.Contains(line, "yes") {
			t.Errorf("create-ticket not marked confirmable: %s", line)
		}
	}
}
