//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"peerdesk/domain"
	"peerdesk/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Conn is one open peer connection. Delivery is reliable and ordered
// per connection only; Send is best-effort once the peer is closing.
type Conn interface {
	PeerID() string
	Send(msg domain.Wire) error
	Close() error
}

type EndpointEventKind int

const (
	ConnOpened EndpointEventKind = iota
	ConnFrame
	ConnClosed
)

// EndpointEvent is one occurrence on the local transport endpoint:
// a peer connection opened, delivered a frame, or closed.
type EndpointEvent struct {
	Kind   EndpointEventKind
	PeerID string
	Conn   Conn   // set for ConnOpened
	Data   []byte // set for ConnFrame
}

// Endpoint is the local end of the peer transport. The engine consumes
// Events from a single goroutine; the transport guarantees that events
// for one peer arrive in connection order.
type Endpoint interface {
	ID() string
	Events() <-chan EndpointEvent
	Close() error
}
