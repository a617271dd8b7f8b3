package workers

import (
	"context"
	"log/slog"
	"time"

	"peerdesk/contract"
	"peerdesk/domain/event"
)

const sinkTimeout = 2 * time.Second

// EventFanout broadcasts engine events to multiple in-process
// consumers (history, telemetry, UI).
//
// It provides best-effort fan-out with no guarantees regarding
// delivery, ordering, durability, or retries. EventFanout is not a
// message broker and never carries replication traffic.
type EventFanout struct {
	Log         *slog.Logger
	DomainEvent chan event.DomainEvent
	sinks       []contract.EventSink
}

func NewEventFanout(log *slog.Logger, domainEvent chan event.DomainEvent) *EventFanout {
	return &EventFanout{Log: log, DomainEvent: domainEvent}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.sinks = append(w.sinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.DomainEvent:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.Log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event to every sink. A slow sink only loses its
// own delivery.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.Log.Warn("Sink failed to consume event", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}
