package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/pkg/models"
)

const (
	// streamBufferSize bounds in-flight events per session. Bursts beyond
	// it drop events rather than block the run.
	streamBufferSize = 64

	// heartbeatInterval keeps idle connections alive through proxies.
	heartbeatInterval = 15 * time.Second
)

// handleRunStream executes an agent run while streaming its events as
// server-sent events. Event names mirror the run event types; the done
// event is always last. Client disconnect cancels the run.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
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

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "streaming unsupported", Code: string(models.RunErrUnknown)})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if s.metrics != nil {
		s.metrics.StreamOpened()
		defer s.metrics.StreamClosed()
	}

	// The request context cancels when the client disconnects, which
	// cascades into the run.
	ctx := r.Context()
	events := make(chan models.RunEvent, streamBufferSize)
	sink := agent.NewChanSink(events)

	go func() {
		s.service.Run(ctx, id, req, sink)
		close(events)
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if s.metrics != nil {
				s.metrics.RecordStreamEvent(string(ev.Type))
			}
		}
	}
}

// writeSSE writes one run event in the named-event wire format.
func writeSSE(w http.ResponseWriter, ev models.RunEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: " + string(ev.Type) + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
