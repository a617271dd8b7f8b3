package session

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"peerdesk/domain"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateCode_Shape(t *testing.T) {
	req := require.New(t)

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		req.Len(code, CodeLength)
		for _, c := range code {
			req.True(strings.ContainsRune(CodeAlphabet, c), "character %q outside alphabet", c)
		}
		seen[code] = struct{}{}
	}
	// Not a randomness test, just a sanity check against a constant generator
	req.Greater(len(seen), 1)
}

func TestHost_Is_Sole_Owner(t *testing.T) {
	req := require.New(t)

	s := NewHost(testLog(), "ABCDEF", "Alice")
	req.Equal(domain.RoleOwner, s.Role())
	req.True(s.IsOwner())
	req.True(s.CanEdit())
	req.NotEmpty(s.Secret())

	// Guests admitted later never get the owner role
	p := s.Admit("guest-1")
	req.Equal(domain.RoleEditor, p.Role)
	req.False(s.SetPeerRole("guest-1", domain.RoleOwner))
	req.Equal(domain.RoleEditor, s.PeerRole("guest-1"))
}

func TestAdmit_Assigns_Default_Role_And_Color(t *testing.T) {
	req := require.New(t)

	s := NewHost(testLog(), "ABCDEF", "Alice")
	s.SetSettings(domain.Settings{DownloadAllowed: true, DefaultRole: domain.RoleViewer})

	p := s.Admit("guest-1")
	req.Equal(domain.RoleViewer, p.Role)
	req.NotEmpty(p.Color)

	// Re-admitting the same id keeps the record
	p2 := s.Admit("guest-1")
	req.Same(p, p2)
	req.Equal(1, s.PeerCount())
}

func TestPeerRole_Defaults_To_Viewer(t *testing.T) {
	req := require.New(t)

	s := NewHost(testLog(), "ABCDEF", "Alice")
	req.Equal(domain.RoleViewer, s.PeerRole("stranger"))
	req.False(s.PeerCanEdit("stranger"))
}

func TestGuest_AdoptRole_Never_Escalates_Garbage(t *testing.T) {
	req := require.New(t)

	s := NewGuest(testLog(), "ABCDEF", "guest-1", "Bob")
	req.Equal(domain.RoleViewer, s.Role())

	s.AdoptRole("superuser")
	req.Equal(domain.RoleViewer, s.Role())

	s.AdoptRole(domain.RoleEditor)
	req.Equal(domain.RoleEditor, s.Role())
}

func TestCanDownload_Follows_Settings(t *testing.T) {
	req := require.New(t)

	s := NewGuest(testLog(), "ABCDEF", "guest-1", "Bob")
	s.AdoptRole(domain.RoleEditor)

	s.SetSettings(domain.Settings{DownloadAllowed: true, DefaultRole: domain.RoleEditor})
	req.True(s.CanDownload())

	s.SetSettings(domain.Settings{DownloadAllowed: false, DefaultRole: domain.RoleEditor})
	req.False(s.CanDownload())

	// Viewer never downloads, regardless of the global switch
	s.AdoptRole(domain.RoleViewer)
	s.SetSettings(domain.Settings{DownloadAllowed: true, DefaultRole: domain.RoleEditor})
	req.False(s.CanDownload())
}

func TestSettings_Sanitized_Clamps_Default_Role(t *testing.T) {
	req := require.New(t)

	s := NewHost(testLog(), "ABCDEF", "Alice")
	s.SetSettings(domain.Settings{DownloadAllowed: true, DefaultRole: domain.RoleOwner})
	req.Equal(domain.RoleEditor, s.Settings().DefaultRole)
}

func TestRemove_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)

	s := NewHost(testLog(), "ABCDEF", "Alice")
	s.Admit("guest-1")
	s.Remove("never-joined")
	req.Equal(1, s.PeerCount())
}
