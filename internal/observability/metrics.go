package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting runtime metrics.
//
// Built on Prometheus, tracking:
//   - Agent run counts and durations
//   - Model request performance
//   - Tool execution patterns and latencies
//   - Pending-action ledger transitions
//   - Streaming session activity
type Metrics struct {
	// AgentRunCounter counts agent runs.
	// Labels: agent_id, status (success|error)
	AgentRunCounter *prometheus.CounterVec

	// AgentRunDuration measures agent run latency in seconds.
	// Labels: agent_id
	AgentRunDuration *prometheus.HistogramVec

	// ModelRequestCounter counts model requests by provider and model.
	// Labels: provider, model, status (success|error)
	ModelRequestCounter *prometheus.CounterVec

	// ModelRequestDuration measures model API call latency in seconds.
	// Labels: provider, model
	ModelRequestDuration *prometheus.HistogramVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_id, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_id
	ToolExecutionDuration *prometheus.HistogramVec

	// ActionTransitionCounter counts pending-action transitions.
	// Labels: to_status (proposed|executed|cancelled|expired)
	ActionTransitionCounter *prometheus.CounterVec

	// ActiveStreams is a gauge of currently open streaming sessions.
	ActiveStreams prometheus.Gauge

	// StreamEventCounter counts streamed run events by type.
	// Labels: event_type
	StreamEventCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		AgentRunCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_agent_runs_total",
				Help: "Total number of agent runs by agent and status",
			},
			[]string{"agent_id", "status"},
		),

		AgentRunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_agent_run_duration_seconds",
				Help:    "Duration of agent runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent_id"},
		),

		ModelRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_model_requests_total",
				Help: "Total number of model requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		ModelRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_model_request_duration_seconds",
				Help:    "Duration of model API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_tool_executions_total",
				Help: "Total number of tool executions by tool and status",
			},
			[]string{"tool_id", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"tool_id"},
		),

		ActionTransitionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_pending_action_transitions_total",
				Help: "Total number of pending-action status transitions",
			},
			[]string{"to_status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "copilot_active_streams",
				Help: "Current number of open streaming run sessions",
			},
		),

		StreamEventCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_stream_events_total",
				Help: "Total number of streamed run events by type",
			},
			[]string{"event_type"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// RecordAgentRun records metrics for one agent run.
func (m *Metrics) RecordAgentRun(agentID, status string, durationSeconds float64) {
	m.AgentRunCounter.WithLabelValues(agentID, status).Inc()
	m.AgentRunDuration.WithLabelValues(agentID).Observe(durationSeconds)
}

// RecordModelRequest records metrics for a model API request.
func (m *Metrics) RecordModelRequest(provider, model, status string, durationSeconds float64) {
	m.ModelRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.ModelRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordToolExecution records metrics for a tool execution.
func (m *Metrics) RecordToolExecution(toolID, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolID, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolID).Observe(durationSeconds)
}

// RecordActionTransition records a pending-action status transition.
func (m *Metrics) RecordActionTransition(toStatus string) {
	m.ActionTransitionCounter.WithLabelValues(toStatus).Inc()
}

// StreamOpened increments the active stream gauge.
func (m *Metrics) StreamOpened() {
	m.ActiveStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func (m *Metrics) StreamClosed() {
	m.ActiveStreams.Dec()
}

// RecordStreamEvent counts one streamed run event.
func (m *Metrics) RecordStreamEvent(eventType string) {
	m.StreamEventCounter.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
