package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haasonsaas/copilot/internal/actions"
	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/pkg/models"
)

// apiError is the envelope for non-run endpoint failures.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const maxRequestBody = 1 << 20

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}

	var req models.RunRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RunResponse{
			OK:    false,
			Error: "invalid request body",
			Code:  models.RunErrValidation,
		})
		return
	}

	resp := s.service.Run(r.Context(), id, req, nil)
	writeJSON(w, runStatusCode(resp), resp)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromRequest(r); !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.service.Agents()})
}

func (s *Server) handleGetAgentTools(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromRequest(r); !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}

	agentID := r.PathValue("id")
	view, err := s.service.AgentTools(agentID)
	if err != nil {
		var notFound *agent.AgentNotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, apiError{Error: "agent not found: " + agentID, Code: string(models.RunErrAgentNotFound)})
			return
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "allowlist resolution failed", Code: string(models.RunErrUnknown)})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetAgentTools(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}
	// Allowlist changes affect every caller of the agent.
	if !hasRole(id, "admin") {
		writeJSON(w, http.StatusForbidden, apiError{Error: "admin role required", Code: "FORBIDDEN"})
		return
	}

	var req struct {
		ToolIDs []string `json:"toolIds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid request body", Code: string(models.RunErrValidation)})
		return
	}

	agentID := r.PathValue("id")
	if err := s.service.SetAgentTools(agentID, req.ToolIDs); err != nil {
		var notFound *agent.AgentNotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, apiError{Error: "agent not found: " + agentID, Code: string(models.RunErrAgentNotFound)})
			return
		}
		var unknownTool *agent.UnknownAllowlistedToolError
		if errors.As(err, &unknownTool) {
			writeJSON(w, http.StatusBadRequest, apiError{Error: unknownTool.Error(), Code: string(models.RunErrValidation)})
			return
		}
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "allowlist update failed", Code: string(models.RunErrUnknown)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agentId": agentID, "toolIds": req.ToolIDs})
}

func (s *Server) handleConfirmAction(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}

	actionID := r.PathValue("id")
	outcome, err := s.service.ConfirmAction(r.Context(), id, actionID)
	if err != nil {
		writeActionError(w, actionID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         outcome.Error == nil,
		"actionId":   outcome.ActionID,
		"status":     outcome.Status,
		"result":     outcome.Result,
		"error":      outcome.Error,
		"executedAt": outcome.ExecutedAt,
	})
}

func (s *Server) handleCancelAction(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "authentication required", Code: "UNAUTHORIZED"})
		return
	}

	actionID := r.PathValue("id")
	outcome, err := s.service.CancelAction(r.Context(), id, actionID)
	if err != nil {
		writeActionError(w, actionID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"actionId": outcome.ActionID,
		"status":   outcome.Status,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeActionError maps ledger errors onto the confirmation status codes.
func writeActionError(w http.ResponseWriter, actionID string, err error) {
	var notFound *actions.NotFoundError
	var expired *actions.ExpiredError
	var mismatch *actions.MismatchError
	var state *actions.StateError

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "action not found: " + actionID, Code: "ACTION_NOT_FOUND"})
	case errors.As(err, &expired):
		writeJSON(w, http.StatusGone, apiError{Error: "action expired: " + actionID, Code: "ACTION_EXPIRED"})
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusForbidden, apiError{Error: "action does not belong to caller", Code: "ACTION_MISMATCH"})
	case errors.As(err, &state):
		writeJSON(w, http.StatusConflict, apiError{Error: state.Error(), Code: "ACTION_STATE_INVALID"})
	default:
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "action update failed", Code: string(models.RunErrUnknown)})
	}
}

// runStatusCode maps boundary run error codes to HTTP status.
func runStatusCode(resp models.RunResponse) int {
	if resp.OK {
		return http.StatusOK
	}
	switch resp.Code {
	case models.RunErrValidation:
		return http.StatusBadRequest
	case models.RunErrAgentNotFound:
		return http.StatusNotFound
	case models.RunErrTimeout:
		return http.StatusGatewayTimeout
	case models.RunErrModel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func hasRole(id Identity, role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}
