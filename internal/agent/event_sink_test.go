package agent

import (
	"context"
	"testing"

	"github.com/haasonsaas/copilot/pkg/models"
)

func TestChanSinkDropsWhenFull(t *testing.T) {
	ch := make(chan models.RunEvent, 1)
	sink := NewChanSink(ch)

	sink.Emit(context.Background(), models.StatusEvent(models.RunPhaseThinking, 1))
	// Channel is now full; this must not block.
	done := make(chan struct{})
	go func() {
		sink.Emit(context.Background(), models.StatusEvent(models.RunPhaseThinking, 2))
		close(done)
	}()
	<-done

	if len(ch) != 1 {
		t.Errorf("channel has %d events, want 1", len(ch))
	}
	e := <-ch
	if e.Status.Step != 1 {
		t.Errorf("kept event step = %d, want 1 (first wins)", e.Status.Step)
	}
}

func TestMultiSinkFiltersNil(t *testing.T) {
	var count int
	cb := NewCallbackSink(func(ctx context.Context, e models.RunEvent) { count++ })
	multi := NewMultiSink(nil, cb, nil)

	multi.Emit(context.Background(), models.DoneEvent())
	if count != 1 {
		t.Errorf("callback invoked %d times, want 1", count)
	}
}

func TestNopSink(t *testing.T) {
	// Must not panic.
	NopSink{}.Emit(context.Background(), models.DoneEvent())
}
