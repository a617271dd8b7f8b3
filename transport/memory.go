// Package transport carries peer frames. Two implementations exist:
// an in-process memory network used by tests and local scenarios, and
// a websocket transport for real sessions. Both deliver raw frames to
// the engine through contract.Endpoint and never interpret payloads.
package transport

import (
	"log/slog"
	"sync"

	"peerdesk/contract"
	"peerdesk/domain"
	pderrors "peerdesk/errors"
)

const endpointEventBuffer = 256

// MemoryNetwork connects endpoints inside one process. Dial pairs the
// caller with whoever is listening under the session code.
type MemoryNetwork struct {
	log *slog.Logger

	mu        sync.Mutex
	listeners map[string]*memoryEndpoint
}

func NewMemoryNetwork(log *slog.Logger) *MemoryNetwork {
	return &MemoryNetwork{
		log:       log.With("component", "memnet"),
		listeners: make(map[string]*memoryEndpoint),
	}
}

// Listen registers a host endpoint under the session code.
func (n *MemoryNetwork) Listen(code string) (contract.Endpoint, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, taken := n.listeners[code]; taken {
		return nil, pderrors.ErrCodeTaken
	}
	ep := newMemoryEndpoint(code)
	ep.onClose = func() { n.forget(code) }
	n.listeners[code] = ep
	return ep, nil
}

// Dial connects a guest to the host listening under the code. The
// returned endpoint carries the host side of the pair; the returned
// conn sends toward the host.
func (n *MemoryNetwork) Dial(selfID, code string) (contract.Endpoint, contract.Conn, error) {
	n.mu.Lock()
	host, ok := n.listeners[code]
	n.mu.Unlock()
	if !ok {
		return nil, nil, pderrors.ErrJoinTimeout
	}

	guest := newMemoryEndpoint(selfID)

	// each side holds a conn that feeds frames into the other's events
	toHost := &memoryConn{peerID: host.id, remote: host, local: guest}
	toGuest := &memoryConn{peerID: selfID, remote: guest, local: host}
	toHost.twin, toGuest.twin = toGuest, toHost

	host.deliver(contract.EndpointEvent{Kind: contract.ConnOpened, PeerID: selfID, Conn: toGuest})
	guest.deliver(contract.EndpointEvent{Kind: contract.ConnOpened, PeerID: host.id, Conn: toHost})
	return guest, toHost, nil
}

func (n *MemoryNetwork) forget(code string) {
	n.mu.Lock()
	delete(n.listeners, code)
	n.mu.Unlock()
}

type memoryEndpoint struct {
	id      string
	events  chan contract.EndpointEvent
	onClose func()

	mu     sync.Mutex
	closed bool
}

func newMemoryEndpoint(id string) *memoryEndpoint {
	return &memoryEndpoint{
		id:     id,
		events: make(chan contract.EndpointEvent, endpointEventBuffer),
	}
}

func (e *memoryEndpoint) ID() string                             { return e.id }
func (e *memoryEndpoint) Events() <-chan contract.EndpointEvent { return e.events }

func (e *memoryEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.events)
		if e.onClose != nil {
			e.onClose()
		}
	}
	return nil
}

func (e *memoryEndpoint) deliver(ev contract.EndpointEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.events <- ev
}

// memoryConn sends by delivering a frame event to the remote endpoint.
type memoryConn struct {
	peerID string
	remote *memoryEndpoint
	local  *memoryEndpoint
	twin   *memoryConn

	mu     sync.Mutex
	closed bool
}

func (c *memoryConn) PeerID() string { return c.peerID }

func (c *memoryConn) Send(msg domain.Wire) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return pderrors.ErrClosed
	}
	data, err := domain.Encode(msg)
	if err != nil {
		return err
	}
	c.remote.deliver(contract.EndpointEvent{
		Kind:   contract.ConnFrame,
		PeerID: c.local.id,
		Data:   data,
	})
	return nil
}

// Close tears down both directions: the remote side observes a
// ConnClosed event, exactly as a dropped socket would look.
func (c *memoryConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.twin != nil {
		c.twin.mu.Lock()
		c.twin.closed = true
		c.twin.mu.Unlock()
	}
	c.remote.deliver(contract.EndpointEvent{Kind: contract.ConnClosed, PeerID: c.local.id})
	c.local.deliver(contract.EndpointEvent{Kind: contract.ConnClosed, PeerID: c.peerID})
	return nil
}
