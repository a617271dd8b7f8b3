package runtime

import (
	"encoding/base64"
	"errors"
	"time"

	"peerdesk/domain"
	"peerdesk/domain/event"
	pderrors "peerdesk/errors"
	"peerdesk/observability"
	"peerdesk/session"
	"peerdesk/transfer"
)

// dispatch routes one admitted frame to its handler. Anything dropped
// past this point is a semantic rejection and lands in the audit; the
// sender is never told.
func (e *Engine) dispatch(senderID string, msg domain.Wire) {
	switch m := msg.(type) {
	case domain.PeerInfo:
		e.onPeerInfo(senderID, m)
	case domain.WorkspaceData:
		e.onWorkspaceData(senderID, m)
	case domain.Sync:
		e.onSync(senderID, m)
	case domain.Cursor:
		e.onCursor(senderID, m)
	case domain.CanvasCursor:
		e.onCanvasCursor(senderID, m)
	case domain.FileOpen:
		e.onFileOpen(senderID, m)
	case domain.CanvasDraw:
		e.onCanvasDraw(senderID, m)
	case domain.CanvasState:
		e.onCanvasState(senderID, m)
	case domain.SlideUpdate:
		e.onSlideUpdate(senderID, m)
	case domain.DotUpdate:
		e.onDotUpdate(senderID, m)
	case domain.FileRename:
		e.onFileRename(senderID, m)
	case domain.FileDelete:
		e.onFileDelete(senderID, m)
	case domain.PermissionChange:
		e.onPermissionChange(senderID, m)
	case domain.Kick:
		e.onKick(senderID, m)
	case domain.Chat:
		e.onChat(senderID, m)
	case domain.SettingsUpdate:
		e.onSettingsUpdate(senderID, m)
	case domain.RequestWorkspace:
		e.sendSnapshot(senderID)
	case domain.TransferStart:
		e.onTransferStart(senderID, m)
	case domain.TransferChunk:
		e.onTransferChunk(senderID, m)
	case domain.TransferEnd:
		e.onTransferEnd(senderID, m)
	case domain.Patch, domain.FileList, domain.Ack:
		// accepted for compatibility, no handler
	default:
		e.audit.Drop(observability.DropBadType)
	}
}

// senderMayMutate reports whether a remote frame is allowed to touch
// committed state. On the host that is the sender's registered role;
// on a guest the only peer is the host, whose frames are
// authoritative.
func (e *Engine) senderMayMutate(senderID string) bool {
	if !e.session.IsOwner() {
		return true
	}
	return e.session.PeerCanEdit(senderID)
}

func (e *Engine) onPeerInfo(senderID string, m domain.PeerInfo) {
	p, ok := e.session.Peer(senderID)
	if !ok {
		p = e.session.Admit(senderID)
	}
	p.Name = domain.Truncate(m.Name, domain.MaxNameLen)
	if m.Color != "" {
		p.Color = m.Color
	}
	e.emit(event.ParticipantJoined{ID: p.ID, Alias: p.Name, Color: p.Color})
}

// onWorkspaceData adopts a host snapshot. The local replica is
// discarded entirely; whatever the host says is the session, is.
func (e *Engine) onWorkspaceData(senderID string, m domain.WorkspaceData) {
	if e.session.IsOwner() {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.store.Adopt(m)
	e.session.AdoptRole(m.PeerRole)
	e.session.SetSettings(m.Settings)
	if secret, err := base64.StdEncoding.DecodeString(m.Secret); err == nil && len(secret) > 0 {
		e.session.AdoptSecret(secret)
	}
	host, ok := e.session.Peer(senderID)
	if !ok {
		host = e.session.AdmitAs(senderID, domain.RoleOwner)
	}
	host.Role = domain.RoleOwner
	host.Name = domain.Truncate(m.HostName, domain.MaxNameLen)
	if m.HostColor != "" {
		host.Color = m.HostColor
	}
	e.audit.Applied()
	e.log.Info("Workspace adopted", "files", len(m.Files), "role", m.PeerRole)
	e.emit(event.SnapshotAdopted{Files: len(m.Files)})
}

func (e *Engine) onSync(senderID string, m domain.Sync) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	applied, err := e.store.ApplySync(m.Filename, m.Content, m.Version)
	if err != nil {
		e.audit.Drop(observability.DropUnknownFile)
		return
	}
	if !applied {
		e.audit.Drop(observability.DropStaleVersion)
		return
	}
	e.audit.Applied()
	e.emit(event.DocumentUpdated{Filename: m.Filename, Version: m.Version})
	e.relay(senderID, m)
}

func (e *Engine) onCursor(senderID string, m domain.Cursor) {
	if p, ok := e.session.Peer(senderID); ok {
		pos := m.Pos
		p.Cursor = &pos
		p.CursorFile = m.Filename
	}
}

func (e *Engine) onCanvasCursor(senderID string, m domain.CanvasCursor) {
	if p, ok := e.session.Peer(senderID); ok {
		pos := m.Pos
		p.CanvasCursor = &pos
	}
}

func (e *Engine) onFileOpen(senderID string, m domain.FileOpen) {
	if p, ok := e.session.Peer(senderID); ok {
		p.ActiveFile = m.Filename
	}
}

func (e *Engine) onCanvasDraw(senderID string, m domain.CanvasDraw) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.store.AppendCanvas(m.Element)
	e.audit.Applied()
	e.relay(senderID, m)
}

func (e *Engine) onCanvasState(senderID string, m domain.CanvasState) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.store.SetCanvas(m.Elements)
	e.audit.Applied()
	e.relay(senderID, m)
}

func (e *Engine) onSlideUpdate(senderID string, m domain.SlideUpdate) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.store.SetSlides(m.Slides, m.CurrentSlide)
	e.audit.Applied()
	e.relay(senderID, m)
}

func (e *Engine) onDotUpdate(senderID string, m domain.DotUpdate) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.store.SetDots(m.Dots)
	e.audit.Applied()
	e.relay(senderID, m)
}

func (e *Engine) onFileRename(senderID string, m domain.FileRename) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	if err := e.store.Rename(m.OldName, m.NewName); err != nil {
		if errors.Is(err, pderrors.ErrFileNotFound) {
			e.audit.Drop(observability.DropUnknownFile)
		} else {
			e.audit.Drop(observability.DropBadFilename)
		}
		return
	}
	e.audit.Applied()
	e.emit(event.FileRenamed{OldName: m.OldName, NewName: m.NewName})
	e.relay(senderID, m)
}

func (e *Engine) onFileDelete(senderID string, m domain.FileDelete) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	if !e.store.Delete(m.Filename) {
		e.audit.Drop(observability.DropUnknownFile)
		return
	}
	e.audit.Applied()
	e.emit(event.FileDeleted{Filename: m.Filename})
	e.relay(senderID, m)
}

// onPermissionChange applies a role directive. Only the addressed
// participant reacts, and only when the token checks out against the
// session secret.
func (e *Engine) onPermissionChange(senderID string, m domain.PermissionChange) {
	if e.session.IsOwner() {
		// guests never issue directives
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	if m.TargetID != e.session.SelfID() {
		return
	}
	if err := session.VerifyDirective(e.session.Secret(), m.Token, m.TargetID, session.GrantRole); err != nil {
		e.audit.Drop(observability.DropBadDirective)
		return
	}
	e.session.AdoptRole(m.Role)
	e.audit.Applied()
	e.log.Info("Role changed", "role", e.session.Role())
	e.emit(event.RoleChanged{ID: e.session.SelfID(), Role: string(e.session.Role())})
}

func (e *Engine) onKick(senderID string, m domain.Kick) {
	if e.session.IsOwner() {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	if m.TargetID != e.session.SelfID() {
		return
	}
	if err := session.VerifyDirective(e.session.Secret(), m.Token, m.TargetID, session.GrantKick); err != nil {
		e.audit.Drop(observability.DropBadDirective)
		return
	}
	e.audit.Applied()
	e.log.Info("Kicked from session")
	e.emit(event.Kicked{ID: e.session.SelfID()})
	if conn, ok := e.conns[senderID]; ok {
		_ = conn.Close()
	}
}

func (e *Engine) onChat(senderID string, m domain.Chat) {
	name := senderID
	if p, ok := e.session.Peer(senderID); ok && p.Name != "" {
		name = p.Name
	}
	e.emit(event.ChatPosted{
		SenderID:   senderID,
		SenderName: name,
		Text:       domain.Truncate(m.Text, domain.MaxChatLen),
		At:         time.Now(),
	})
}

func (e *Engine) onSettingsUpdate(senderID string, m domain.SettingsUpdate) {
	if e.session.IsOwner() {
		// session policy belongs to the owner alone
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.session.SetSettings(m.Settings)
	e.audit.Applied()
}

func (e *Engine) onTransferStart(senderID string, m domain.TransferStart) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	e.transfers.Start(senderID, m.Meta)
}

func (e *Engine) onTransferChunk(senderID string, m domain.TransferChunk) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	if err := e.transfers.Chunk(senderID, m.Index, m.Data); err != nil {
		e.audit.Drop(observability.DropAssembly)
	}
}

// onTransferEnd closes out an assembly. The host re-publishes the
// artifact to the other peers as a fresh chunk stream rather than
// forwarding the sender's frames.
func (e *Engine) onTransferEnd(senderID string, m domain.TransferEnd) {
	if !e.senderMayMutate(senderID) {
		e.audit.Drop(observability.DropUnauthorized)
		return
	}
	artifact, err := e.transfers.End(senderID, m.Name)
	if err != nil {
		e.log.Debug("Transfer assembly failed", "sender", senderID, "error", err)
		e.audit.Drop(observability.DropAssembly)
		return
	}
	e.acceptArtifact(artifact)
	e.audit.Applied()
	e.emit(event.TransferCompleted{
		SenderID: senderID,
		Filename: artifact.Name,
		Size:     int64(len(artifact.Data)),
		Mime:     artifact.Mime,
	})
	if e.session.IsOwner() {
		for _, frame := range transfer.Frames(artifact.Name, artifact.Category, artifact.Mime, artifact.Data) {
			e.relay(senderID, frame)
		}
	}
}

// acceptArtifact stores a reassembled transfer: text categories land
// as documents, everything else as an opaque asset.
func (e *Engine) acceptArtifact(a transfer.Artifact) {
	if a.Category == "file" {
		if name, err := e.store.Add(a.Name, string(a.Data)); err != nil {
			e.log.Warn("Transferred file rejected", "file", a.Name, "error", err)
		} else {
			e.emit(event.FileAdded{Filename: name})
		}
		return
	}
	e.store.PutAsset(a.Name, a.Data)
}
