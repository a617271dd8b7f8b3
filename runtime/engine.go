// Package runtime drives a session: one engine goroutine owns every
// piece of mutable state (roles, replica, transfers) and consumes
// transport events and local commands from a single loop. Nothing in
// here needs a lock; concurrency ends at the channel boundary.
package runtime

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"peerdesk/admission"
	"peerdesk/contract"
	"peerdesk/domain"
	"peerdesk/domain/event"
	"peerdesk/observability"
	"peerdesk/session"
	"peerdesk/transfer"
	"peerdesk/workspace"
)

const (
	defaultDebounceInterval = 120 * time.Millisecond
	defaultCursorInterval   = 80 * time.Millisecond
	defaultSnapshotDelay    = 200 * time.Millisecond
	defaultKickDelay        = 300 * time.Millisecond

	commandBuffer = 128
	eventBuffer   = 64
)

// Options tunes the engine's timing. Zero values take the defaults;
// tests shrink them to keep runs fast.
type Options struct {
	DebounceInterval time.Duration
	CursorInterval   time.Duration
	SnapshotDelay    time.Duration
	KickDelay        time.Duration
}

func (o Options) withDefaults() Options {
	if o.DebounceInterval <= 0 {
		o.DebounceInterval = defaultDebounceInterval
	}
	if o.CursorInterval <= 0 {
		o.CursorInterval = defaultCursorInterval
	}
	if o.SnapshotDelay <= 0 {
		o.SnapshotDelay = defaultSnapshotDelay
	}
	if o.KickDelay <= 0 {
		o.KickDelay = defaultKickDelay
	}
	return o
}

type command func(*Engine)

// Engine is the session brain. All fields below the channel block are
// owned by the Run goroutine exclusively.
type Engine struct {
	log   *slog.Logger
	opts  Options
	audit *observability.Audit

	cmds   chan command
	events chan event.DomainEvent
	done   chan struct{}

	session   *session.Session
	store     *workspace.Store
	gate      *admission.Gate
	transfers *transfer.Manager
	endpoint  contract.Endpoint
	conns     map[string]contract.Conn

	flushTimers   map[string]*time.Timer
	kickPending   map[string]*time.Timer
	cursorPending *domain.Cursor
	cursorTimer   *time.Timer
}

func NewEngine(
	log *slog.Logger,
	sess *session.Session,
	store *workspace.Store,
	endpoint contract.Endpoint,
	audit *observability.Audit,
	opts Options,
) *Engine {
	return &Engine{
		log:         log.With("component", "engine", "session", sess.Code()),
		opts:        opts.withDefaults(),
		audit:       audit,
		cmds:        make(chan command, commandBuffer),
		events:      make(chan event.DomainEvent, eventBuffer),
		done:        make(chan struct{}),
		session:     sess,
		store:       store,
		gate:        admission.NewGate(log, audit),
		transfers:   transfer.NewManager(log),
		endpoint:    endpoint,
		conns:       make(map[string]contract.Conn),
		flushTimers: make(map[string]*time.Timer),
		kickPending: make(map[string]*time.Timer),
	}
}

// Events exposes the engine's domain event stream for fan-out.
func (e *Engine) Events() chan event.DomainEvent { return e.events }

func (e *Engine) Audit() *observability.Audit { return e.audit }

// Run is the engine loop; it satisfies contract.Worker so the
// supervisor can own its lifecycle.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.teardown()
	e.log.Info("Engine running", "role", e.session.Role())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-e.endpoint.Events():
			if !ok {
				e.log.Info("Transport endpoint closed")
				return nil
			}
			e.handleEndpointEvent(ev)
		case cmd := <-e.cmds:
			cmd(e)
		}
	}
}

func (e *Engine) teardown() {
	for _, t := range e.flushTimers {
		t.Stop()
	}
	for _, t := range e.kickPending {
		t.Stop()
	}
	if e.cursorTimer != nil {
		e.cursorTimer.Stop()
	}
	for _, conn := range e.conns {
		_ = conn.Close()
	}
}

// do posts a command onto the engine loop. Safe from any goroutine;
// a stopped engine swallows the command.
func (e *Engine) do(cmd command) {
	select {
	case e.cmds <- cmd:
	case <-e.done:
	}
}

func (e *Engine) after(d time.Duration, cmd command) *time.Timer {
	return time.AfterFunc(d, func() { e.do(cmd) })
}

func (e *Engine) emit(ev event.DomainEvent) {
	select {
	case e.events <- ev:
	default:
		e.log.Debug("Domain event lost", "event", ev.Name())
	}
}

func (e *Engine) handleEndpointEvent(ev contract.EndpointEvent) {
	switch ev.Kind {
	case contract.ConnOpened:
		e.handleOpened(ev.PeerID, ev.Conn)
	case contract.ConnFrame:
		e.handleFrame(ev.PeerID, ev.Data)
	case contract.ConnClosed:
		e.handleClosed(ev.PeerID)
	}
}

func (e *Engine) handleOpened(peerID string, conn contract.Conn) {
	e.conns[peerID] = conn
	if e.session.IsOwner() {
		p := e.session.Admit(peerID)
		e.log.Info("Peer connected", "peer", peerID, "role", p.Role)
		e.emit(event.ParticipantJoined{ID: p.ID, Alias: p.Name, Color: p.Color})
		e.after(e.opts.SnapshotDelay, func(e *Engine) { e.sendSnapshot(peerID) })
		return
	}
	// guest side: introduce ourselves to the host
	e.log.Info("Connected to host")
	e.send(peerID, domain.PeerInfo{
		Name:  e.session.SelfName(),
		Color: e.session.SelfColor(),
	})
}

func (e *Engine) handleFrame(peerID string, data []byte) {
	msg, ok := e.gate.Admit(peerID, data)
	if !ok {
		return
	}
	e.dispatch(peerID, msg)
}

// handleClosed cascades a disconnect: the participant entry, its rate
// window and any half-received transfer all go away together.
func (e *Engine) handleClosed(peerID string) {
	if _, ok := e.conns[peerID]; !ok {
		return
	}
	delete(e.conns, peerID)
	e.session.Remove(peerID)
	e.gate.Forget(peerID)
	e.transfers.Drop(peerID)
	if t, ok := e.kickPending[peerID]; ok {
		t.Stop()
		delete(e.kickPending, peerID)
	}
	e.log.Info("Peer disconnected", "peer", peerID)
	e.emit(event.ParticipantLeft{ID: peerID})

	// a guest without its host connection has no session left
	if !e.session.IsOwner() && len(e.conns) == 0 {
		e.log.Info("Host connection lost, leaving session")
		_ = e.endpoint.Close()
	}
}

// send delivers one frame to one peer, best effort.
func (e *Engine) send(peerID string, msg domain.Wire) {
	conn, ok := e.conns[peerID]
	if !ok {
		return
	}
	if err := conn.Send(msg); err != nil {
		e.log.Debug("Send failed", "peer", peerID, "type", msg.Kind(), "error", err)
	}
}

// broadcast sends to every connected peer. On a guest that is exactly
// the host; on the host it is every guest.
func (e *Engine) broadcast(msg domain.Wire) {
	for peerID := range e.conns {
		e.send(peerID, msg)
	}
}

// relay re-broadcasts a replicable frame to every peer except its
// origin. Only the host relays; a frame never returns to its sender.
func (e *Engine) relay(senderID string, msg domain.Wire) {
	if !e.session.IsOwner() {
		return
	}
	for peerID := range e.conns {
		if peerID == senderID {
			continue
		}
		e.send(peerID, msg)
	}
	e.audit.Relayed()
}

func (e *Engine) sendSnapshot(peerID string) {
	if !e.session.IsOwner() {
		return
	}
	if _, ok := e.conns[peerID]; !ok {
		return
	}
	snap := e.store.Snapshot()
	snap.Settings = e.session.Settings()
	snap.PeerRole = e.session.PeerRole(peerID)
	snap.HostName = e.session.SelfName()
	snap.HostColor = e.session.SelfColor()
	snap.Secret = base64.StdEncoding.EncodeToString(e.session.Secret())
	e.send(peerID, snap)
	e.log.Debug("Snapshot sent", "peer", peerID, "files", len(snap.Files))
}
