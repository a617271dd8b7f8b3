package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"peerdesk/contract"
	"peerdesk/domain"
	pderrors "peerdesk/errors"
)

// DialTimeout bounds a guest's join attempt.
const DialTimeout = 14 * time.Second

const peerIDParam = "peer"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// sessions are gated by the code, not the page origin
	CheckOrigin: func(*http.Request) bool { return true },
}

// WebsocketHost serves a session endpoint over HTTP. Guests connect to
// ws://host/session/{code}?peer={id} and every upgraded socket becomes
// a peer connection on the endpoint.
type WebsocketHost struct {
	log    *slog.Logger
	code   string
	server *http.Server
	events chan contract.EndpointEvent

	mu     sync.Mutex
	closed bool
}

func NewWebsocketHost(log *slog.Logger, code, addr string) *WebsocketHost {
	h := &WebsocketHost{
		log:    log.With("component", "ws-host", "session", code),
		code:   code,
		events: make(chan contract.EndpointEvent, endpointEventBuffer),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/session/"+code, h.handleJoin)
	h.server = &http.Server{Addr: addr, Handler: mux}
	return h
}

// Serve blocks on the HTTP listener until Close.
func (h *WebsocketHost) Serve() error {
	h.log.Info("Session listening", "addr", h.server.Addr)
	err := h.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (h *WebsocketHost) handleJoin(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get(peerIDParam)
	if peerID == "" {
		peerID = uuid.NewString()
	}
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "peer", peerID, "error", err)
		return
	}
	conn := newWsConn(peerID, sock)
	h.deliver(contract.EndpointEvent{Kind: contract.ConnOpened, PeerID: peerID, Conn: conn})
	go h.readPump(conn)
}

// readPump moves frames from one socket into the event stream. When
// the read side fails the peer is reported closed, once.
func (h *WebsocketHost) readPump(conn *wsConn) {
	defer func() {
		_ = conn.Close()
		h.deliver(contract.EndpointEvent{Kind: contract.ConnClosed, PeerID: conn.peerID})
	}()
	for {
		_, data, err := conn.sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Socket read ended", "peer", conn.peerID, "error", err)
			}
			return
		}
		h.deliver(contract.EndpointEvent{Kind: contract.ConnFrame, PeerID: conn.peerID, Data: data})
	}
}

func (h *WebsocketHost) deliver(ev contract.EndpointEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.events <- ev
}

func (h *WebsocketHost) ID() string                             { return h.code }
func (h *WebsocketHost) Events() <-chan contract.EndpointEvent { return h.events }

func (h *WebsocketHost) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	close(h.events)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// guestEndpoint wraps a single dialed socket as an endpoint whose only
// peer is the host.
type guestEndpoint struct {
	id     string
	conn   *wsConn
	hostID string
	events chan contract.EndpointEvent

	mu     sync.Mutex
	closed bool
}

// DialWebsocket joins a hosted session as a guest. The attempt is
// bounded by DialTimeout unless the context expires first.
func DialWebsocket(ctx context.Context, log *slog.Logger, baseURL, code, selfID string) (contract.Endpoint, contract.Conn, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse session url: %w", err)
	}
	u = u.JoinPath("session", code)
	if u.Scheme == "http" || u.Scheme == "" {
		u.Scheme = "ws"
	} else if u.Scheme == "https" {
		u.Scheme = "wss"
	}
	q := u.Query()
	q.Set(peerIDParam, selfID)
	u.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()
	sock, _, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if err != nil {
		if dialCtx.Err() != nil {
			return nil, nil, pderrors.ErrJoinTimeout
		}
		return nil, nil, fmt.Errorf("failed to dial %s: %w", u.String(), err)
	}

	hostID := code
	conn := newWsConn(hostID, sock)
	ep := &guestEndpoint{
		id:     selfID,
		conn:   conn,
		hostID: hostID,
		events: make(chan contract.EndpointEvent, endpointEventBuffer),
	}
	ep.deliver(contract.EndpointEvent{Kind: contract.ConnOpened, PeerID: hostID, Conn: conn})
	go ep.readPump(log)
	return ep, conn, nil
}

func (e *guestEndpoint) readPump(log *slog.Logger) {
	defer func() {
		_ = e.conn.Close()
		e.deliver(contract.EndpointEvent{Kind: contract.ConnClosed, PeerID: e.hostID})
	}()
	for {
		_, data, err := e.conn.sock.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Host socket read ended", "error", err)
			}
			return
		}
		e.deliver(contract.EndpointEvent{Kind: contract.ConnFrame, PeerID: e.hostID, Data: data})
	}
}

func (e *guestEndpoint) deliver(ev contract.EndpointEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.events <- ev
}

func (e *guestEndpoint) ID() string                             { return e.id }
func (e *guestEndpoint) Events() <-chan contract.EndpointEvent { return e.events }

func (e *guestEndpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.events)
	e.mu.Unlock()
	return e.conn.Close()
}

// wsConn adapts one gorilla socket to contract.Conn. Gorilla allows a
// single concurrent writer, hence the mutex around writes.
type wsConn struct {
	peerID string
	sock   *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

func newWsConn(peerID string, sock *websocket.Conn) *wsConn {
	return &wsConn{peerID: peerID, sock: sock}
}

func (c *wsConn) PeerID() string { return c.peerID }

func (c *wsConn) Send(msg domain.Wire) error {
	data, err := domain.Encode(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return pderrors.ErrClosed
	}
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.sock.Close()
}
