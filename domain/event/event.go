// Package event defines the domain events the engine emits for
// in-process consumers (history, telemetry, UI). Delivery is
// best-effort fan-out, never part of the replication contract.
package event

import "time"

type DomainEvent interface {
	Name() string
}

type ParticipantJoined struct {
	ID    string
	Alias string
	Color string
}

type ParticipantLeft struct {
	ID string
}

type RoleChanged struct {
	ID   string
	Role string
}

type Kicked struct {
	ID string
}

type DocumentUpdated struct {
	Filename string
	Version  int64
}

type FileAdded struct {
	Filename string
}

type FileRenamed struct {
	OldName string
	NewName string
}

type FileDeleted struct {
	Filename string
}

type ChatPosted struct {
	SenderID   string
	SenderName string
	Text       string
	At         time.Time
}

type SnapshotAdopted struct {
	Files int
}

type TransferCompleted struct {
	SenderID string
	Filename string
	Size     int64
	Mime     string
}

func (ParticipantJoined) Name() string { return "participant_joined" }
func (ParticipantLeft) Name() string   { return "participant_left" }
func (RoleChanged) Name() string       { return "role_changed" }
func (Kicked) Name() string            { return "kicked" }
func (DocumentUpdated) Name() string   { return "document_updated" }
func (FileAdded) Name() string         { return "file_added" }
func (FileRenamed) Name() string       { return "file_renamed" }
func (FileDeleted) Name() string       { return "file_deleted" }
func (ChatPosted) Name() string        { return "chat_posted" }
func (SnapshotAdopted) Name() string   { return "snapshot_adopted" }
func (TransferCompleted) Name() string { return "transfer_completed" }
