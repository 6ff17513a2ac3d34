package dispatcher

import (
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewInstruments(t *testing.T) {
	in, err := newInstruments(noop.Meter{}, func() map[string]int { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.queueSize == nil || in.processed == nil || in.dropped == nil {
		t.Fatalf("expected all instruments to be created, got %+v", in)
	}
}

func TestDispatcher_QueueDepths(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{})
	release := make(chan struct{})
	d.Register(":SAVE:", func(e Event) (any, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}, Buffered(4))
	d.Register(":TRACE:SAMPLE:", func(e Event) (any, error) { return nil, nil })

	if _, err := d.Dispatch(Event{Command: ":SAVE:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-started // worker holds the first event

	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(Event{Command: ":SAVE:"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	depths := d.queueDepths()
	if depths[":SAVE:"] != 2 {
		t.Errorf("expected 2 queued, got %d", depths[":SAVE:"])
	}
	if _, ok := depths[":TRACE:SAMPLE:"]; ok {
		t.Error("sync commands have no queue")
	}

	go func() {
		for range started {
		}
	}()
	close(release)
	d.Close()
	close(started)
}
