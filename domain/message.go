// Package domain contains core concepts of the shared workspace.
// This file defines the wire message union. Every frame exchanged
// between peers is JSON with a mandatory "type" tag drawn from a
// closed set; anything else is rejected at the admission gate.
package domain

import (
	"encoding/json"
	"fmt"
)

type MsgType string

const (
	MsgSync             MsgType = "sync"
	MsgPatch            MsgType = "patch"
	MsgCursor           MsgType = "cursor"
	MsgFileOpen         MsgType = "file-open"
	MsgFileList         MsgType = "file-list"
	MsgFileDelete       MsgType = "file-delete"
	MsgFileRename       MsgType = "file-rename"
	MsgPermissionChange MsgType = "permission-change"
	MsgKick             MsgType = "kick"
	MsgChat             MsgType = "chat"
	MsgPeerInfo         MsgType = "peer-info"
	MsgRequestWorkspace MsgType = "request-workspace"
	MsgWorkspaceData    MsgType = "workspace-data"
	MsgSettingsUpdate   MsgType = "settings-update"
	MsgAck              MsgType = "ack"
	MsgCanvasDraw       MsgType = "canvas-draw"
	MsgCanvasState      MsgType = "canvas-state"
	MsgCanvasCursor     MsgType = "canvas-cursor"
	MsgSlideUpdate      MsgType = "slide-update"
	MsgDotUpdate        MsgType = "dot-update"
	MsgTransferStart    MsgType = "transfer-start"
	MsgTransferChunk    MsgType = "transfer-chunk"
	MsgTransferEnd      MsgType = "transfer-end"
)

// Wire is implemented by every decodable wire message.
type Wire interface {
	Kind() MsgType
}

// Replicable reports whether a host must mirror the message to the
// other guests after applying it locally. Chat, presence and transfer
// frames are deliberately absent: chat stays point-to-point, cursors
// are presence-only, and completed transfers are re-published as fresh
// chunk sequences rather than relayed frame-for-frame.
func Replicable(t MsgType) bool {
	switch t {
	case MsgSync, MsgCanvasDraw, MsgCanvasState, MsgSlideUpdate,
		MsgDotUpdate, MsgFileRename, MsgFileDelete:
		return true
	}
	return false
}

// Position is a text cursor location inside a document.
type Position struct {
	Line   int `json:"lineNumber"`
	Column int `json:"column"`
}

type Sync struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content"`
	Version  int64  `json:"version"`
}

// Patch is reserved for incremental edits. It is accepted at the gate
// so older builds can emit it, but carries no handler.
type Patch struct {
	Filename string `json:"filename"`
}

type Cursor struct {
	Filename string   `json:"filename"`
	Pos      Position `json:"pos"`
}

type FileOpen struct {
	Filename string `json:"filename"`
}

// FileList is a lightweight inventory frame, accepted and ignored.
type FileList struct {
	Files []string `json:"files"`
}

type FileDelete struct {
	Filename string `json:"filename" validate:"required"`
}

type FileRename struct {
	OldName string `json:"oldName" validate:"required"`
	NewName string `json:"newName" validate:"required"`
}

// PermissionChange is a role directive from the owner. The addressed
// participant applies it only when TargetID matches its own identity
// and, when a session secret is in play, the token verifies.
type PermissionChange struct {
	TargetID string `json:"targetId"`
	Role     Role   `json:"role"`
	Token    string `json:"token,omitempty"`
}

type Kick struct {
	TargetID string `json:"targetId"`
	Token    string `json:"token,omitempty"`
}

type Chat struct {
	Text string `json:"text"`
}

type PeerInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type RequestWorkspace struct{}

// FileState is one document inside a workspace snapshot.
type FileState struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	Version  int64  `json:"version"`
}

// WorkspaceData is the full-state snapshot a host sends to a joining
// guest. The guest discards its replica entirely and adopts this.
type WorkspaceData struct {
	Files          map[string]FileState `json:"files"`
	ActiveFile     string               `json:"activeFile"`
	Settings       Settings             `json:"settings"`
	PeerRole       Role                 `json:"peerRole"`
	HostName       string               `json:"myName"`
	HostColor      string               `json:"myColor"`
	CanvasElements []CanvasElement      `json:"canvasElements"`
	Slides         []Slide              `json:"slides"`
	CurrentSlide   int                  `json:"currentSlide"`
	Dots           []Annotation         `json:"dots"`
	Secret         string               `json:"secret,omitempty"`
}

type SettingsUpdate struct {
	Settings Settings `json:"settings"`
}

type Ack struct{}

type CanvasDraw struct {
	Element CanvasElement `json:"element"`
}

type CanvasState struct {
	Elements []CanvasElement `json:"elements"`
}

type CanvasCursor struct {
	Pos Point `json:"pos"`
}

type SlideUpdate struct {
	Slides       []Slide `json:"slides"`
	CurrentSlide int     `json:"currentSlide"`
}

type DotUpdate struct {
	Dots []Annotation `json:"dots"`
}

// TransferMeta describes one chunked artifact in flight.
type TransferMeta struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type"`
	Size        int64  `json:"size" validate:"min=0"`
	Category    string `json:"category"`
	TotalChunks int    `json:"totalChunks" validate:"min=1"`
	Encoding    string `json:"encoding"`
}

type TransferStart struct {
	Meta TransferMeta `json:"meta"`
}

type TransferChunk struct {
	Index int    `json:"index" validate:"min=0"`
	Data  string `json:"data"`
}

type TransferEnd struct {
	Name string `json:"name" validate:"required"`
}

func (Sync) Kind() MsgType             { return MsgSync }
func (Patch) Kind() MsgType            { return MsgPatch }
func (Cursor) Kind() MsgType           { return MsgCursor }
func (FileOpen) Kind() MsgType         { return MsgFileOpen }
func (FileList) Kind() MsgType         { return MsgFileList }
func (FileDelete) Kind() MsgType       { return MsgFileDelete }
func (FileRename) Kind() MsgType       { return MsgFileRename }
func (PermissionChange) Kind() MsgType { return MsgPermissionChange }
func (Kick) Kind() MsgType             { return MsgKick }
func (Chat) Kind() MsgType             { return MsgChat }
func (PeerInfo) Kind() MsgType         { return MsgPeerInfo }
func (RequestWorkspace) Kind() MsgType { return MsgRequestWorkspace }
func (WorkspaceData) Kind() MsgType    { return MsgWorkspaceData }
func (SettingsUpdate) Kind() MsgType   { return MsgSettingsUpdate }
func (Ack) Kind() MsgType              { return MsgAck }
func (CanvasDraw) Kind() MsgType       { return MsgCanvasDraw }
func (CanvasState) Kind() MsgType      { return MsgCanvasState }
func (CanvasCursor) Kind() MsgType     { return MsgCanvasCursor }
func (SlideUpdate) Kind() MsgType      { return MsgSlideUpdate }
func (DotUpdate) Kind() MsgType        { return MsgDotUpdate }
func (TransferStart) Kind() MsgType    { return MsgTransferStart }
func (TransferChunk) Kind() MsgType    { return MsgTransferChunk }
func (TransferEnd) Kind() MsgType      { return MsgTransferEnd }

// Decode parses one wire frame into its typed message. An unknown or
// missing type tag is an error; the caller treats it as a silent drop.
func Decode(data []byte) (Wire, error) {
	var env struct {
		Type MsgType `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	var msg Wire
	var err error
	switch env.Type {
	case MsgSync:
		msg, err = decodeAs[Sync](data)
	case MsgPatch:
		msg, err = decodeAs[Patch](data)
	case MsgCursor:
		msg, err = decodeAs[Cursor](data)
	case MsgFileOpen:
		msg, err = decodeAs[FileOpen](data)
	case MsgFileList:
		msg, err = decodeAs[FileList](data)
	case MsgFileDelete:
		msg, err = decodeAs[FileDelete](data)
	case MsgFileRename:
		msg, err = decodeAs[FileRename](data)
	case MsgPermissionChange:
		msg, err = decodeAs[PermissionChange](data)
	case MsgKick:
		msg, err = decodeAs[Kick](data)
	case MsgChat:
		msg, err = decodeAs[Chat](data)
	case MsgPeerInfo:
		msg, err = decodeAs[PeerInfo](data)
	case MsgRequestWorkspace:
		msg, err = decodeAs[RequestWorkspace](data)
	case MsgWorkspaceData:
		msg, err = decodeAs[WorkspaceData](data)
	case MsgSettingsUpdate:
		msg, err = decodeAs[SettingsUpdate](data)
	case MsgAck:
		msg, err = decodeAs[Ack](data)
	case MsgCanvasDraw:
		msg, err = decodeAs[CanvasDraw](data)
	case MsgCanvasState:
		msg, err = decodeAs[CanvasState](data)
	case MsgCanvasCursor:
		msg, err = decodeAs[CanvasCursor](data)
	case MsgSlideUpdate:
		msg, err = decodeAs[SlideUpdate](data)
	case MsgDotUpdate:
		msg, err = decodeAs[DotUpdate](data)
	case MsgTransferStart:
		msg, err = decodeAs[TransferStart](data)
	case MsgTransferChunk:
		msg, err = decodeAs[TransferChunk](data)
	case MsgTransferEnd:
		msg, err = decodeAs[TransferEnd](data)
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func decodeAs[T Wire](data []byte) (Wire, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decoding %s frame: %w", msg.Kind(), err)
	}
	return msg, nil
}

// Encode serializes a message with its type tag injected, so the
// payload structs stay free of redundant Type fields.
func Encode(msg Wire) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	fields["type"] = string(msg.Kind())
	return json.Marshal(fields)
}
