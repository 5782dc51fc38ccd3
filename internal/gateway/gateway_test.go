package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/copilot/internal/actions"
	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	toolReg := agent.NewToolRegistry()
	if err := toolReg.Register(&agent.ToolDefinition{
		ID:                   "reset-demo",
		Name:                 "Reset Demo",
		Description:          "Resets the demo environment.",
		Effect:               models.ToolEffectWrite,
		RequiresConfirmation: true,
		InputSchema:          json.RawMessage(`{"type":"object"}`),
		Run: func(ctx context.Context, ic *agent.Context, args json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"reset":true}`), nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	agentReg := agent.NewAgentRegistry()
	if err := agentReg.Register(&agent.AgentDefinition{
		ID:          "echo",
		Name:        "Echo",
		Description: "Echoes its input back.",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`),
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, err
			}
			out, _ := json.Marshal(map[string]string{"echo": in.Message})
			return out, nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := agentReg.Register(&agent.AgentDefinition{
		ID:          "proposer",
		Name:        "Proposer",
		Description: "Proposes a demo reset.",
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{
				"summary": "reset proposed",
				"proposedActions": [{
					"actionId": "action-reset01",
					"toolId": "reset-demo",
					"args": {},
					"title": "Reset the demo environment",
					"risk": "high",
					"requiresConfirmation": true
				}]
			}`), nil
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := agentReg.Register(&agent.AgentDefinition{
		ID:          "sleeper",
		Name:        "Sleeper",
		Description: "Waits out the deadline.",
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}); err != nil {
		t.Fatal(err)
	}

	validator := schema.NewValidator()
	invoker := agent.NewInvoker(toolReg, validator, nil, nil, nil, agent.InvokerConfig{})
	ledger := actions.NewLedger(nil, nil, actions.Config{})

	service := NewService(ServiceConfig{
		Agents:    agentReg,
		Tools:     toolReg,
		Invoker:   invoker,
		Ledger:    ledger,
		Validator: validator,
	})

	srv := NewServer(ServerConfig{Service: service})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, body any, cookies map[string]string) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, buf)
	if err != nil {
		t.Fatal(err)
	}
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

// runProposer runs the proposer agent and returns the ledger-minted id of
// its proposed action, read back from the run response.
func runProposer(t *testing.T, ts *httptest.Server, cookies map[string]string) string {
	t.Helper()
	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{
		"agentId": "proposer",
	}, cookies)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("run status = %d: %s", resp.StatusCode, body)
	}
	var out models.RunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	var result struct {
		ProposedActions []struct {
			ActionID string `json:"actionId"`
		} `json:"proposedActions"`
	}
	if err := json.Unmarshal(out.Result, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.ProposedActions) != 1 || result.ProposedActions[0].ActionID == "" {
		t.Fatalf("run result carries no action id: %s", out.Result)
	}
	return result.ProposedActions[0].ActionID
}

func memberCookies() map[string]string {
	return map[string]string{
		UserCookie:   "user-1",
		TenantCookie: "acme",
		RolesCookie:  "member",
	}
}

func adminCookies() map[string]string {
	return map[string]string{
		UserCookie:   "user-1",
		TenantCookie: "acme",
		RolesCookie:  "member,admin",
	}
}

func TestRunSuccess(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{
		"agentId": "echo",
		"input":   map[string]string{"message": "hello"},
	}, memberCookies())

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.RunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.OK || out.AgentID != "echo" {
		t.Errorf("response = %+v", out)
	}
	if !strings.Contains(string(out.Result), `"echo":"hello"`) {
		t.Errorf("result = %s", out.Result)
	}
}

func TestRunRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{"agentId": "echo"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRunValidationError(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{
		"agentId": "echo",
		"input":   map[string]int{"message_count": 3},
	}, memberCookies())

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.RunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Code != models.RunErrValidation {
		t.Errorf("code = %q", out.Code)
	}
	if len(out.Details) == 0 {
		t.Error("expected validation issues in details")
	}
}

func TestRunUnknownAgent(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{
		"agentId": "nope",
	}, memberCookies())

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.RunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Code != models.RunErrAgentNotFound {
		t.Errorf("code = %q", out.Code)
	}
}

func TestRunTimeout(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run", map[string]any{
		"agentId":   "sleeper",
		"timeoutMs": 50,
	}, memberCookies())

	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out models.RunResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Code != models.RunErrTimeout {
		t.Errorf("code = %q", out.Code)
	}
}

func TestListAgents(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/copilot/agents", nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Agents []models.AgentMetadata `json:"agents"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Agents) != 3 {
		t.Errorf("agents = %d, want 3", len(out.Agents))
	}
	// Listings never expose schemas or prompts.
	if strings.Contains(string(body), "inputSchema") {
		t.Error("agent listing leaked schema")
	}
}

func TestAllowlistEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// No allowlist resolves to an empty allowed set, but the full catalog
	// is still listed for the editor.
	resp, body := doRequest(t, ts, http.MethodGet, "/copilot/agents/echo/tools", nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var view struct {
		AgentID        string           `json:"agentId"`
		AllowedTools   []models.ToolRef `json:"allowedTools"`
		AvailableTools []models.ToolRef `json:"availableTools"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if view.AgentID != "echo" || len(view.AllowedTools) != 0 {
		t.Errorf("view = %+v", view)
	}
	if len(view.AvailableTools) != 1 || view.AvailableTools[0].ID != "reset-demo" || view.AvailableTools[0].Name != "Reset Demo" {
		t.Errorf("available tools = %+v", view.AvailableTools)
	}
	if !strings.Contains(string(body), `"allowedTools":[]`) {
		t.Errorf("allowed tools not serialized as empty array: %s", body)
	}

	// Updating requires the admin role.
	resp, _ = doRequest(t, ts, http.MethodPut, "/copilot/agents/echo/tools", map[string]any{
		"toolIds": []string{"reset-demo"},
	}, memberCookies())
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin update status = %d, want 403", resp.StatusCode)
	}

	resp, body = doRequest(t, ts, http.MethodPut, "/copilot/agents/echo/tools", map[string]any{
		"toolIds": []string{"reset-demo"},
	}, adminCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin update status = %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, ts, http.MethodGet, "/copilot/agents/echo/tools", nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	view.AllowedTools = nil
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatal(err)
	}
	if len(view.AllowedTools) != 1 || view.AllowedTools[0].ID != "reset-demo" || view.AllowedTools[0].Name != "Reset Demo" {
		t.Errorf("allowed tools = %+v", view.AllowedTools)
	}

	// Unknown tool ids are rejected without changing the allowlist.
	resp, _ = doRequest(t, ts, http.MethodPut, "/copilot/agents/echo/tools", map[string]any{
		"toolIds": []string{"no-such-tool"},
	}, adminCookies())
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown tool status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doRequest(t, ts, http.MethodGet, "/copilot/agents/nope/tools", nil, memberCookies())
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown agent status = %d, want 404", resp.StatusCode)
	}
}

func TestConfirmFlow(t *testing.T) {
	ts := newTestServer(t)

	// The run registers its proposed action in the ledger and hands the
	// minted id back in the response.
	actionID := runProposer(t, ts, memberCookies())

	confirmPath := "/copilot/actions/" + actionID + "/confirm"
	resp, body := doRequest(t, ts, http.MethodPost, confirmPath, nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d: %s", resp.StatusCode, body)
	}
	var out struct {
		OK         bool            `json:"ok"`
		Status     string          `json:"status"`
		Result     json.RawMessage `json:"result"`
		ExecutedAt *time.Time      `json:"executedAt"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.OK || out.Status != "executed" {
		t.Errorf("outcome = %+v", out)
	}
	if !strings.Contains(string(out.Result), `"reset":true`) {
		t.Errorf("result = %s", out.Result)
	}
	if out.ExecutedAt == nil || out.ExecutedAt.IsZero() {
		t.Error("confirm response missing executedAt")
	}

	// A second confirmation conflicts with the executed state.
	resp, body = doRequest(t, ts, http.MethodPost, confirmPath, nil, memberCookies())
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("repeat confirm status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "ACTION_STATE_INVALID") {
		t.Errorf("body = %s", body)
	}
}

func TestProposalIDsAreRemintedPerRun(t *testing.T) {
	ts := newTestServer(t)

	// The agent hardcodes "action-reset01" in its output; the ledger keys
	// the entry under its own id.
	actionID := runProposer(t, ts, memberCookies())
	if actionID == "action-reset01" {
		t.Error("agent-supplied action id reused as ledger key")
	}

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/actions/action-reset01/confirm", nil, memberCookies())
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("agent-supplied id confirm status = %d: %s", resp.StatusCode, body)
	}

	// Two users running the same agent each get their own entry.
	otherUser := map[string]string{
		UserCookie:   "user-2",
		TenantCookie: "acme",
		RolesCookie:  "member",
	}
	otherID := runProposer(t, ts, otherUser)
	if otherID == actionID {
		t.Fatalf("both runs registered under %q", actionID)
	}
	resp, body = doRequest(t, ts, http.MethodPost, "/copilot/actions/"+actionID+"/confirm", nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Errorf("first user's confirm status = %d: %s", resp.StatusCode, body)
	}
}

func TestConfirmOwnership(t *testing.T) {
	ts := newTestServer(t)

	actionID := runProposer(t, ts, memberCookies())

	otherUser := map[string]string{
		UserCookie:   "user-2",
		TenantCookie: "acme",
		RolesCookie:  "member",
	}
	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/actions/"+actionID+"/confirm", nil, otherUser)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "ACTION_MISMATCH") {
		t.Errorf("body = %s", body)
	}
}

func TestCancelAction(t *testing.T) {
	ts := newTestServer(t)

	actionID := runProposer(t, ts, memberCookies())

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/actions/"+actionID+"/cancel", nil, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"status":"cancelled"`) {
		t.Errorf("body = %s", body)
	}

	// Cancelled actions cannot be confirmed.
	resp, body = doRequest(t, ts, http.MethodPost, "/copilot/actions/"+actionID+"/confirm", nil, memberCookies())
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("confirm status = %d: %s", resp.StatusCode, body)
	}
}

func TestCancelUnknownAction(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/actions/action-missing/cancel", nil, memberCookies())
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "ACTION_NOT_FOUND") {
		t.Errorf("body = %s", body)
	}
}

func TestRunStream(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run/stream", map[string]any{
		"agentId": "echo",
		"input":   map[string]string{"message": "hi"},
	}, memberCookies())

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	text := string(body)
	resultIdx := strings.Index(text, "event: result")
	doneIdx := strings.Index(text, "event: done")
	if resultIdx < 0 || doneIdx < 0 {
		t.Fatalf("stream = %s", text)
	}
	if doneIdx < resultIdx {
		t.Error("done event arrived before result")
	}
	if !strings.Contains(text, `"echo":"hi"`) {
		t.Errorf("stream missing result payload: %s", text)
	}
}

func TestStreamErrorEvents(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodPost, "/copilot/run/stream", map[string]any{
		"agentId": "nope",
	}, memberCookies())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	text := string(body)
	if !strings.Contains(text, "event: error") || !strings.Contains(text, "AGENT_NOT_FOUND") {
		t.Errorf("stream = %s", text)
	}
	if !strings.Contains(text, "event: done") {
		t.Errorf("stream missing done event: %s", text)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodGet, "/healthz", nil, nil)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing generated request id")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-ID", "req-keep-1")
	resp2, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if got := resp2.Header.Get("X-Request-ID"); got != "req-keep-1" {
		t.Errorf("request id = %q", got)
	}
}

func TestServerStartStop(t *testing.T) {
	srv := NewServer(ServerConfig{
		Addr:    "127.0.0.1:0",
		Service: NewService(ServiceConfig{Agents: agent.NewAgentRegistry(), Tools: agent.NewToolRegistry()}),
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop(context.Background())

	url := fmt.Sprintf("http://%s/healthz", srv.Addr())
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
