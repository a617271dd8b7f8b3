// Package transfer assembles and produces chunked artifact streams.
// Large payloads never ride in a single frame: the sender splits the
// artifact into base64 chunks and the receiver rebuilds it once the
// closing frame arrives.
package transfer

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"peerdesk/domain"
	pderrors "peerdesk/errors"
)

// ChunkSize is the raw byte count per chunk, before base64 expansion.
const ChunkSize = 32 << 10

const EncodingBase64 = "base64"

// Artifact is a fully reassembled transfer.
type Artifact struct {
	Name     string
	Category string
	Data     []byte
	Mime     string
}

type inflight struct {
	meta   domain.TransferMeta
	chunks map[int]string
}

// Manager tracks at most one in-flight transfer per sender. It is not
// safe for concurrent use; the engine goroutine owns it.
type Manager struct {
	log      *slog.Logger
	inflight map[string]*inflight
}

func NewManager(log *slog.Logger) *Manager {
	return &Manager{
		log:      log.With("component", "transfer"),
		inflight: make(map[string]*inflight),
	}
}

// Start opens a transfer for the sender. A second start from the same
// sender silently discards the previous partial assembly.
func (m *Manager) Start(senderID string, meta domain.TransferMeta) {
	if prior, ok := m.inflight[senderID]; ok {
		m.log.Debug("Transfer replaced mid flight",
			"sender", senderID, "discarded", prior.meta.Name, "started", meta.Name)
	}
	m.inflight[senderID] = &inflight{
		meta:   meta,
		chunks: make(map[int]string, meta.TotalChunks),
	}
}

// Chunk records one chunk. Chunks may arrive in any order; a repeated
// index overwrites the earlier copy.
func (m *Manager) Chunk(senderID string, index int, data string) error {
	t, ok := m.inflight[senderID]
	if !ok {
		return pderrors.ErrNoTransfer
	}
	if index < 0 || index >= t.meta.TotalChunks {
		return fmt.Errorf("chunk index %d outside 0..%d: %w",
			index, t.meta.TotalChunks-1, pderrors.ErrTransferIncomplete)
	}
	t.chunks[index] = data
	return nil
}

// End closes the transfer and returns the reassembled artifact. The
// in-flight state is consumed whether assembly succeeds or not, so a
// failed transfer never blocks the sender's next one.
func (m *Manager) End(senderID, name string) (Artifact, error) {
	t, ok := m.inflight[senderID]
	if !ok {
		return Artifact{}, pderrors.ErrNoTransfer
	}
	delete(m.inflight, senderID)

	if name != t.meta.Name {
		return Artifact{}, fmt.Errorf("end names %q, started %q: %w",
			name, t.meta.Name, pderrors.ErrTransferName)
	}

	data := make([]byte, 0, t.meta.Size)
	for i := 0; i < t.meta.TotalChunks; i++ {
		encoded, ok := t.chunks[i]
		if !ok {
			return Artifact{}, fmt.Errorf("chunk %d of %d missing: %w",
				i, t.meta.TotalChunks, pderrors.ErrTransferIncomplete)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return Artifact{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		data = append(data, raw...)
	}
	if int64(len(data)) != t.meta.Size {
		return Artifact{}, fmt.Errorf("assembled %d bytes, declared %d: %w",
			len(data), t.meta.Size, pderrors.ErrSizeMismatch)
	}

	return Artifact{
		Name:     t.meta.Name,
		Category: t.meta.Category,
		Data:     data,
		Mime:     mimetype.Detect(data).String(),
	}, nil
}

// Drop discards the sender's in-flight transfer, if any. Called on
// disconnect so half-received assemblies do not linger.
func (m *Manager) Drop(senderID string) {
	if t, ok := m.inflight[senderID]; ok {
		m.log.Debug("Transfer dropped", "sender", senderID, "file", t.meta.Name)
		delete(m.inflight, senderID)
	}
}

func (m *Manager) Inflight(senderID string) bool {
	_, ok := m.inflight[senderID]
	return ok
}

// Split cuts an artifact into base64 chunks and the metadata
// describing them. The inverse of End.
func Split(name, category, mime string, data []byte) (domain.TransferMeta, []string) {
	total := (len(data) + ChunkSize - 1) / ChunkSize
	if total == 0 {
		total = 1
	}
	chunks := make([]string, 0, total)
	for off := 0; off < len(data); off += ChunkSize {
		end := off + ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, base64.StdEncoding.EncodeToString(data[off:end]))
	}
	if len(chunks) == 0 {
		chunks = append(chunks, base64.StdEncoding.EncodeToString(nil))
	}
	return domain.TransferMeta{
		Name:        name,
		Type:        mime,
		Size:        int64(len(data)),
		Category:    category,
		TotalChunks: total,
		Encoding:    EncodingBase64,
	}, chunks
}

// Frames renders a complete start/chunk/end sequence for an artifact.
// The host uses this to re-publish a received transfer: relayed copies
// are freshly chunked, never forwarded frame for frame.
func Frames(name, category, mime string, data []byte) []domain.Wire {
	meta, chunks := Split(name, category, mime, data)
	frames := make([]domain.Wire, 0, len(chunks)+2)
	frames = append(frames, domain.TransferStart{Meta: meta})
	for i, c := range chunks {
		frames = append(frames, domain.TransferChunk{Index: i, Data: c})
	}
	frames = append(frames, domain.TransferEnd{Name: name})
	return frames
}
