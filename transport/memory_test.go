package transport

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"peerdesk/contract"
	"peerdesk/domain"
	pderrors "peerdesk/errors"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nextEvent(t *testing.T, ep contract.Endpoint) contract.EndpointEvent {
	t.Helper()
	select {
	case ev, ok := <-ep.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for endpoint event")
		return contract.EndpointEvent{}
	}
}

func TestMemoryNetwork_Dial_Opens_Both_Sides(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	host, err := net.Listen("ABC234")
	req.NoError(err)

	guestEp, toHost, err := net.Dial("guest-1", "ABC234")
	req.NoError(err)

	hostOpen := nextEvent(t, host)
	req.Equal(contract.ConnOpened, hostOpen.Kind)
	req.Equal("guest-1", hostOpen.PeerID)
	req.NotNil(hostOpen.Conn)

	guestOpen := nextEvent(t, guestEp)
	req.Equal(contract.ConnOpened, guestOpen.Kind)
	req.Equal("ABC234", guestOpen.PeerID)
	req.Equal("ABC234", toHost.PeerID())
}

func TestMemoryNetwork_Frames_Travel_Both_Ways(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	host, err := net.Listen("ABC234")
	req.NoError(err)
	guestEp, toHost, err := net.Dial("guest-1", "ABC234")
	req.NoError(err)
	hostOpen := nextEvent(t, host)
	nextEvent(t, guestEp)

	// guest to host
	req.NoError(toHost.Send(domain.Chat{Text: "hello host"}))
	frame := nextEvent(t, host)
	req.Equal(contract.ConnFrame, frame.Kind)
	req.Equal("guest-1", frame.PeerID)
	msg, err := domain.Decode(frame.Data)
	req.NoError(err)
	chat, ok := msg.(domain.Chat)
	req.True(ok)
	req.Equal("hello host", chat.Text)

	// host to guest
	req.NoError(hostOpen.Conn.Send(domain.Chat{Text: "hello guest"}))
	frame = nextEvent(t, guestEp)
	req.Equal(contract.ConnFrame, frame.Kind)
	req.Equal("ABC234", frame.PeerID)
}

func TestMemoryNetwork_Close_Reaches_The_Remote(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	host, err := net.Listen("ABC234")
	req.NoError(err)
	guestEp, toHost, err := net.Dial("guest-1", "ABC234")
	req.NoError(err)
	nextEvent(t, host)
	nextEvent(t, guestEp)

	req.NoError(toHost.Close())

	ev := nextEvent(t, host)
	req.Equal(contract.ConnClosed, ev.Kind)
	req.Equal("guest-1", ev.PeerID)

	ev = nextEvent(t, guestEp)
	req.Equal(contract.ConnClosed, ev.Kind)

	req.ErrorIs(toHost.Send(domain.Chat{Text: "too late"}), pderrors.ErrClosed)
}

func TestMemoryNetwork_Dial_Unknown_Code(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	_, _, err := net.Dial("guest-1", "NOSUCH")
	req.ErrorIs(err, pderrors.ErrJoinTimeout)
}

func TestMemoryNetwork_Listen_Rejects_Duplicate_Code(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	host, err := net.Listen("ABC234")
	req.NoError(err)
	_, err = net.Listen("ABC234")
	req.ErrorIs(err, pderrors.ErrCodeTaken)

	// the code is free again once the host leaves
	req.NoError(host.Close())
	_, err = net.Listen("ABC234")
	req.NoError(err)
}

func TestMemoryNetwork_Multiple_Guests(t *testing.T) {
	req := require.New(t)
	net := NewMemoryNetwork(testLog())

	host, err := net.Listen("ABC234")
	req.NoError(err)

	conns := make(map[string]contract.Conn)
	for _, id := range []string{"g1", "g2", "g3"} {
		_, _, err := net.Dial(id, "ABC234")
		req.NoError(err)
		ev := nextEvent(t, host)
		req.Equal(contract.ConnOpened, ev.Kind)
		conns[ev.PeerID] = ev.Conn
	}
	req.Len(conns, 3)

	// host can address each guest independently
	for id, conn := range conns {
		req.NoError(conn.Send(domain.Chat{Text: "hi " + id}))
	}
}
