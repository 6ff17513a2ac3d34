package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":TRACE:SAMPLE:", func(e Event) (any, error) {
		got = e
		return "frame", nil
	})

	result, err := d.Dispatch(Event{Command: ":TRACE:SAMPLE:", Args: []string{"10", "20"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "frame" {
		t.Errorf("expected 'frame', got %v", result)
	}
	if len(got.Args) != 2 || got.Args[0] != "10" {
		t.Errorf("handler received wrong args: %v", got.Args)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected dispatch to stamp the event")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	e, err := ParseEvent(":TRACE:PRESS:|0|0|1920|1080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Command != ":TRACE:PRESS:" {
		t.Errorf("expected :TRACE:PRESS:, got %s", e.Command)
	}
	if len(e.Args) != 4 || e.Args[3] != "1080" {
		t.Errorf("unexpected args: %v", e.Args)
	}

	e, err = ParseEvent(":TRACE:RELEASE:")
	if err != nil || len(e.Args) != 0 {
		t.Errorf("expected bare command, got %v %v", e, err)
	}

	if _, err := ParseEvent("  "); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand for blank line, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":LOCATION:SAVE:", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		result, err := d.Dispatch(Event{Command: ":LOCATION:SAVE:"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != Queued {
			t.Errorf("expected %q, got %v", Queued, result)
		}
	}

	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected 5 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register(":SLOW:", func(e Event) (any, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	}, Buffered(1))

	// first event is taken by the worker
	d.Dispatch(Event{Command: ":SLOW:"})
	<-started
	// second fills the queue
	if _, err := d.Dispatch(Event{Command: ":SLOW:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := d.Dispatch(Event{Command: ":SLOW:"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_ClosedRejectsBuffered(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Register(":METRIC:", func(e Event) (any, error) { return nil, nil }, Buffered(4))

	d.Close()
	d.Close()

	_, err := d.Dispatch(Event{Command: ":METRIC:"})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)
	d.Register(":FAILS:", func(e Event) (any, error) {
		return nil, fmt.Errorf("disk full")
	}, Buffered(1))

	d.Dispatch(Event{Command: ":FAILS:"})
	d.Close()

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.messages) != 1 || !strings.HasPrefix(logger.messages[0], "ERROR: buffered event failed") {
		t.Errorf("expected one buffered failure log, got %v", logger.messages)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: ":ERROR:"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":TRACE:RESET:", func(e Event) (any, error) { return nil, nil })
	d.Register(":SESSION:CLOSE:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":TRACE:RESET:") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}

	cmds := d.Commands()
	if len(cmds) != 2 || cmds[0] != ":SESSION:CLOSE:" || cmds[1] != ":TRACE:RESET:" {
		t.Errorf("unexpected commands: %v", cmds)
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":COMBINED:", func(e Event) (any, error) {
		processed.Add(1)
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Command: ":COMBINED:"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != Queued {
		t.Errorf("expected %q, got %v", Queued, result)
	}

	d.Close()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}
