package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/mapreader/tracer/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments are the dispatcher's OTel metrics, keyed by command.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// newInstruments creates the dispatcher metrics on m. depths is polled on
// every collection and reports the queued event count per buffered command.
func newInstruments(m metric.Meter, depths func() map[string]int) (*instruments, error) {
	var (
		in  instruments
		err error
	)

	in.queueSize, err = m.Int64ObservableGauge(
		"mapreader.dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for cmd, n := range depths() {
				o.ObserveInt64(in.queueSize, int64(n),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		in.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	in.processed, err = m.Int64Counter(
		"mapreader.dispatcher.events.processed",
		metric.WithDescription("Buffered events handled by a worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	in.dropped, err = m.Int64Counter(
		"mapreader.dispatcher.events.dropped",
		metric.WithDescription("Events rejected because their queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return &in, nil
}
