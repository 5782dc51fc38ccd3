package agent

import (
	"context"

	"github.com/haasonsaas/copilot/pkg/models"
)

// EventSink receives run events during agent execution.
// Implementations must be safe to call from multiple goroutines and
// should be non-blocking or handle backpressure gracefully.
type EventSink interface {
	Emit(ctx context.Context, e models.RunEvent)
}

// ChanSink sends events to a channel, dropping when the channel is full
// rather than blocking the run.
type ChanSink struct {
	ch chan<- models.RunEvent
}

// NewChanSink creates a sink that sends to a channel.
// The channel should be buffered to avoid dropping events.
func NewChanSink(ch chan<- models.RunEvent) *ChanSink {
	return &ChanSink{ch: ch}
}

// Emit sends the event to the channel (non-blocking if full or context
// cancelled).
func (s *ChanSink) Emit(ctx context.Context, e models.RunEvent) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	default:
		// Channel full - drop event rather than block.
	}
}

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink creates a sink that dispatches events to multiple sinks.
// Nil sinks are filtered out automatically.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	filtered := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

// Emit dispatches the event to all sinks.
func (s *MultiSink) Emit(ctx context.Context, e models.RunEvent) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, e)
	}
}

// CallbackSink wraps a function as an EventSink.
type CallbackSink struct {
	fn func(ctx context.Context, e models.RunEvent)
}

// NewCallbackSink creates a sink that calls the provided function for
// each event.
func NewCallbackSink(fn func(ctx context.Context, e models.RunEvent)) *CallbackSink {
	return &CallbackSink{fn: fn}
}

// Emit calls the wrapped function.
func (s *CallbackSink) Emit(ctx context.Context, e models.RunEvent) {
	if s.fn != nil {
		s.fn(ctx, e)
	}
}

// NopSink discards all events silently.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(ctx context.Context, e models.RunEvent) {}
