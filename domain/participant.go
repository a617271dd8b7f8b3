// Package domain contains core concepts of the shared workspace.
// This file defines Participant entities and role predicates.
// No runtime, network, or UI logic should be added here.
package domain

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r Role) bool {
	return r == RoleOwner || r == RoleEditor || r == RoleViewer
}

// AssignableRole reports whether an owner may grant r to a guest.
// There is no escalation path to owner.
func AssignableRole(r Role) bool {
	return r == RoleEditor || r == RoleViewer
}

// CanEdit reports whether the role may commit mutations anywhere in
// the workspace (documents, canvas, slides, annotations, transfers).
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanDownload applies the session download policy: the owner always
// may, everyone else needs the global setting and a non-viewer role.
func (r Role) CanDownload(downloadAllowed bool) bool {
	return r == RoleOwner || (downloadAllowed && r != RoleViewer)
}

// Participant is one member of a session, keyed by its
// transport-assigned identity.
type Participant struct {
	ID           string
	Name         string
	Color        string
	Role         Role
	ActiveFile   string
	Cursor       *Position
	CursorFile   string
	CanvasCursor *Point
}

// PeerColors is the palette cycled through as guests join.
var PeerColors = []string{
	"#ff6b6b", "#ff9f43", "#feca57", "#48dbfb", "#ff9ff3",
	"#54a0ff", "#5f27cd", "#1dd1a1", "#c8d6e5", "#ee5a24",
}

const DefaultPeerColor = "#54a0ff"

// ColorFor picks a palette color for the nth participant.
func ColorFor(n int) string {
	return PeerColors[n%len(PeerColors)]
}
