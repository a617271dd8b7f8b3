package runtime

import (
	"time"

	"peerdesk/domain"
	"peerdesk/domain/event"
	pderrors "peerdesk/errors"
	"peerdesk/session"
	"peerdesk/transfer"
	"peerdesk/workspace"
)

// The local API below is what the UI layer calls. Every method posts
// onto the engine loop and waits for the result, so callers observe
// the same ordering as remote frames.

func (e *Engine) call(fn func(*Engine) error) error {
	errCh := make(chan error, 1)
	e.do(func(e *Engine) { errCh <- fn(e) })
	select {
	case err := <-errCh:
		return err
	case <-e.done:
		return pderrors.ErrClosed
	}
}

// EditFile records a local keystroke burst. The broadcast is
// debounced: the version bumps and the sync frame goes out only once
// the edits pause.
func (e *Engine) EditFile(name, content string) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		if !e.store.Touch(name, content) {
			return pderrors.ErrFileNotFound
		}
		e.scheduleFlush(name)
		return nil
	})
}

func (e *Engine) scheduleFlush(name string) {
	if t, ok := e.flushTimers[name]; ok {
		t.Reset(e.opts.DebounceInterval)
		return
	}
	e.flushTimers[name] = e.after(e.opts.DebounceInterval, func(e *Engine) {
		delete(e.flushTimers, name)
		e.flushFile(name)
	})
}

func (e *Engine) flushFile(name string) {
	content, version, ok := e.store.Flush(name)
	if !ok {
		return
	}
	e.broadcast(domain.Sync{Filename: name, Content: content, Version: version})
	e.emit(event.DocumentUpdated{Filename: name, Version: version})
}

// AddFile creates a document locally. No frame goes out: peers never
// apply a sync for a file they do not hold, so new files reach them
// through the snapshot path (join or request-workspace), not a
// broadcast.
func (e *Engine) AddFile(name, content string) (string, error) {
	var safe string
	err := e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		var err error
		safe, err = e.store.Add(name, content)
		if err != nil {
			return err
		}
		e.emit(event.FileAdded{Filename: safe})
		return nil
	})
	return safe, err
}

func (e *Engine) RenameFile(oldName, newName string) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		if !domain.ValidFilename(newName) {
			return pderrors.ErrInvalidFilename
		}
		if err := e.store.Rename(oldName, newName); err != nil {
			return err
		}
		e.broadcast(domain.FileRename{OldName: oldName, NewName: newName})
		e.emit(event.FileRenamed{OldName: oldName, NewName: newName})
		return nil
	})
}

func (e *Engine) DeleteFile(name string) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		if !e.store.Delete(name) {
			return pderrors.ErrFileNotFound
		}
		e.broadcast(domain.FileDelete{Filename: name})
		e.emit(event.FileDeleted{Filename: name})
		return nil
	})
}

func (e *Engine) OpenFile(name string) error {
	return e.call(func(e *Engine) error {
		e.store.SetActiveFile(name)
		e.broadcast(domain.FileOpen{Filename: name})
		return nil
	})
}

// MoveCursor coalesces rapid cursor movement: only the latest position
// goes out when the debounce window fires.
func (e *Engine) MoveCursor(filename string, pos domain.Position) error {
	return e.call(func(e *Engine) error {
		e.cursorPending = &domain.Cursor{Filename: filename, Pos: pos}
		if e.cursorTimer != nil {
			return nil
		}
		e.cursorTimer = e.after(e.opts.CursorInterval, func(e *Engine) {
			e.cursorTimer = nil
			if e.cursorPending != nil {
				e.broadcast(*e.cursorPending)
				e.cursorPending = nil
			}
		})
		return nil
	})
}

func (e *Engine) PostChat(text string) error {
	return e.call(func(e *Engine) error {
		text = domain.Truncate(text, domain.MaxChatLen)
		e.broadcast(domain.Chat{Text: text})
		e.emit(event.ChatPosted{
			SenderID:   e.session.SelfID(),
			SenderName: e.session.SelfName(),
			Text:       text,
			At:         time.Now(),
		})
		return nil
	})
}

func (e *Engine) Draw(el domain.CanvasElement) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		e.store.AppendCanvas(el)
		e.broadcast(domain.CanvasDraw{Element: el})
		return nil
	})
}

func (e *Engine) SetSlides(slides []domain.Slide, current int) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		e.store.SetSlides(slides, current)
		deck, cur := e.store.Slides()
		e.broadcast(domain.SlideUpdate{Slides: deck, CurrentSlide: cur})
		return nil
	})
}

func (e *Engine) SetDots(dots []domain.Annotation) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		e.store.SetDots(dots)
		e.broadcast(domain.DotUpdate{Dots: dots})
		return nil
	})
}

// SetSettings updates session policy and pushes it to every guest.
// Owner only.
func (e *Engine) SetSettings(settings domain.Settings) error {
	return e.call(func(e *Engine) error {
		if !e.session.IsOwner() {
			return pderrors.ErrNotPermitted
		}
		e.session.SetSettings(settings)
		e.broadcast(domain.SettingsUpdate{Settings: e.session.Settings()})
		return nil
	})
}

// ChangeRole reassigns a guest's role and sends the signed directive.
// Owner only; the owner role itself is never assignable.
func (e *Engine) ChangeRole(targetID string, role domain.Role) error {
	return e.call(func(e *Engine) error {
		if !e.session.IsOwner() {
			return pderrors.ErrNotPermitted
		}
		if !e.session.SetPeerRole(targetID, role) {
			return pderrors.ErrNotPermitted
		}
		token, err := session.MintDirective(e.session.Secret(), targetID, session.GrantRole)
		if err != nil {
			return err
		}
		e.send(targetID, domain.PermissionChange{TargetID: targetID, Role: role, Token: token})
		e.emit(event.RoleChanged{ID: targetID, Role: string(role)})
		return nil
	})
}

// KickPeer expels a guest: the directive goes out first, then after a
// short grace the connection is torn down locally. Kicking an unknown
// id is a no-op.
func (e *Engine) KickPeer(targetID string) error {
	return e.call(func(e *Engine) error {
		if !e.session.IsOwner() {
			return pderrors.ErrNotPermitted
		}
		if _, ok := e.conns[targetID]; !ok {
			return nil
		}
		token, err := session.MintDirective(e.session.Secret(), targetID, session.GrantKick)
		if err != nil {
			return err
		}
		e.send(targetID, domain.Kick{TargetID: targetID, Token: token})
		e.emit(event.Kicked{ID: targetID})
		e.kickPending[targetID] = e.after(e.opts.KickDelay, func(e *Engine) {
			delete(e.kickPending, targetID)
			if conn, ok := e.conns[targetID]; ok {
				_ = conn.Close()
			}
		})
		return nil
	})
}

// SendArtifact ships a binary payload to the session as a chunk
// stream. The local copy is stored alongside.
func (e *Engine) SendArtifact(name, category string, data []byte) error {
	return e.call(func(e *Engine) error {
		if !e.session.CanEdit() {
			return pderrors.ErrNotPermitted
		}
		if int64(len(data)) > domain.MaxFileSize {
			return pderrors.ErrTooLarge
		}
		if !domain.ValidFilename(name) {
			return pderrors.ErrInvalidFilename
		}
		frames := transfer.Frames(name, category, "", data)
		for _, frame := range frames {
			e.broadcast(frame)
		}
		e.acceptArtifact(transfer.Artifact{Name: name, Category: category, Data: data})
		return nil
	})
}

// RequestSnapshot asks the host to resend the full workspace.
// Guest only; the host answer arrives as a workspace-data frame.
func (e *Engine) RequestSnapshot() error {
	return e.call(func(e *Engine) error {
		if e.session.IsOwner() {
			return nil
		}
		e.broadcast(domain.RequestWorkspace{})
		return nil
	})
}

// Snapshot returns a copy of the live workspace state.
func (e *Engine) Snapshot() (domain.WorkspaceData, error) {
	var snap domain.WorkspaceData
	err := e.call(func(e *Engine) error {
		snap = e.store.Snapshot()
		snap.Settings = e.session.Settings()
		return nil
	})
	return snap, err
}

// Participants lists the session roster as the engine sees it.
func (e *Engine) Participants() ([]*domain.Participant, error) {
	var out []*domain.Participant
	err := e.call(func(e *Engine) error {
		out = e.session.Participants()
		return nil
	})
	return out, err
}

// Role reports the local participant's current role.
func (e *Engine) Role() (domain.Role, error) {
	var role domain.Role
	err := e.call(func(e *Engine) error {
		role = e.session.Role()
		return nil
	})
	return role, err
}

// Asset returns a stored binary artifact by name.
func (e *Engine) Asset(name string) ([]byte, bool, error) {
	var (
		data []byte
		ok   bool
	)
	err := e.call(func(e *Engine) error {
		data, ok = e.store.Asset(name)
		return nil
	})
	return data, ok, err
}

// Search runs a full-text query over the replica.
func (e *Engine) Search(query string) ([]workspace.Match, error) {
	var matches []workspace.Match
	err := e.call(func(e *Engine) error {
		var err error
		matches, err = e.store.Search(query)
		return err
	})
	return matches, err
}
