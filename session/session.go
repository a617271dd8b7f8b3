// Package session owns who is in the room and what they may do. One
// Session aggregate per process; the engine goroutine is its only
// writer, so the aggregate itself carries no locking.
package session

import (
	"crypto/rand"
	"log/slog"
	"sort"

	"peerdesk/domain"
)

// CodeAlphabet excludes visually confusable glyphs (0/O, 1/I).
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
)

// GenerateCode draws a shareable session code. The host's transport
// identity equals this code; there is no separate registry.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(buf)
}

// Session tracks the local participant's view of the room: its own
// identity and role, every known peer, and the owner-controlled
// settings. Exactly one participant in the room holds RoleOwner.
type Session struct {
	log      *slog.Logger
	code     string
	selfID   string
	selfName string
	selfColor string
	role     domain.Role
	secret   []byte
	peers    map[string]*domain.Participant
	settings domain.Settings
	joined   int // total peers ever admitted, drives color rotation
}

// NewHost creates the owning side of a session. The secret backs
// capability tokens for role-change and kick directives.
func NewHost(log *slog.Logger, code, name string) *Session {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}
	return &Session{
		log:       log,
		code:      code,
		selfID:    code,
		selfName:  domain.Truncate(name, domain.MaxNameLen),
		selfColor: domain.ColorFor(0),
		role:      domain.RoleOwner,
		secret:    secret,
		peers:     make(map[string]*domain.Participant),
		settings:  domain.DefaultSettings(),
	}
}

// NewGuest creates the joining side. The guest's role and the session
// secret arrive later inside the workspace snapshot; until then it is
// a viewer that trusts nothing.
func NewGuest(log *slog.Logger, code, selfID, name string) *Session {
	return &Session{
		log:       log,
		code:      code,
		selfID:    selfID,
		selfName:  domain.Truncate(name, domain.MaxNameLen),
		selfColor: domain.ColorFor(0),
		role:      domain.RoleViewer,
		peers:     make(map[string]*domain.Participant),
		settings:  domain.DefaultSettings(),
	}
}

func (s *Session) Code() string      { return s.code }
func (s *Session) SelfID() string    { return s.selfID }
func (s *Session) SelfName() string  { return s.selfName }
func (s *Session) SelfColor() string { return s.selfColor }
func (s *Session) Role() domain.Role { return s.role }
func (s *Session) IsOwner() bool     { return s.role == domain.RoleOwner }
func (s *Session) Secret() []byte    { return s.secret }

// AdoptRole applies a role received from a snapshot or a verified
// directive. Unknown values degrade to viewer, never escalate.
func (s *Session) AdoptRole(r domain.Role) {
	if !domain.ValidRole(r) {
		r = domain.RoleViewer
	}
	s.role = r
}

// AdoptSecret installs the capability secret delivered in a snapshot.
func (s *Session) AdoptSecret(secret []byte) {
	if len(secret) > 0 {
		s.secret = secret
	}
}

// CanEdit reports whether the local participant may commit mutations.
func (s *Session) CanEdit() bool { return s.role.CanEdit() }

// CanDownload applies the global download setting to the local role.
func (s *Session) CanDownload() bool {
	return s.role.CanDownload(s.settings.DownloadAllowed)
}

func (s *Session) Settings() domain.Settings { return s.settings }

func (s *Session) SetSettings(settings domain.Settings) {
	s.settings = settings.Sanitized()
}

// Admit registers a newly connected peer with the configured default
// role and the next palette color. Re-admitting an id keeps the
// existing record.
func (s *Session) Admit(id string) *domain.Participant {
	if p, ok := s.peers[id]; ok {
		return p
	}
	s.joined++
	p := &domain.Participant{
		ID:    id,
		Name:  "Peer",
		Color: domain.ColorFor(s.joined),
		Role:  s.settings.DefaultRole,
	}
	s.peers[id] = p
	return p
}

// AdmitAs registers a peer with an explicit role; used by guests to
// record the host as owner.
func (s *Session) AdmitAs(id string, role domain.Role) *domain.Participant {
	p := s.Admit(id)
	p.Role = role
	return p
}

func (s *Session) Remove(id string) {
	delete(s.peers, id)
}

func (s *Session) Peer(id string) (*domain.Participant, bool) {
	p, ok := s.peers[id]
	return p, ok
}

// PeerRole defaults unknown peers to viewer, the least privilege.
func (s *Session) PeerRole(id string) domain.Role {
	if p, ok := s.peers[id]; ok {
		return p.Role
	}
	return domain.RoleViewer
}

func (s *Session) PeerCanEdit(id string) bool {
	return s.PeerRole(id).CanEdit()
}

// SetPeerRole records a role change for a peer. Returns false when the
// peer is unknown or the role is not grantable.
func (s *Session) SetPeerRole(id string, role domain.Role) bool {
	p, ok := s.peers[id]
	if !ok || !domain.AssignableRole(role) {
		return false
	}
	p.Role = role
	return true
}

// Participants lists known peers in stable id order.
func (s *Session) Participants() []*domain.Participant {
	out := make([]*domain.Participant, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Session) PeerCount() int { return len(s.peers) }
