// Package admission guards the engine's single event loop. Every
// inbound frame passes shape, type, boundary and rate checks before
// any handler runs. Failing any check drops the frame with no error
// back to the sender: an adversarial peer learns nothing from probing.
package admission

import (
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"peerdesk/domain"
	"peerdesk/observability"
	"peerdesk/transfer"
)

// window is one sender's fixed one-second rate window.
type window struct {
	count   int
	resetAt time.Time
}

type Gate struct {
	log      *slog.Logger
	audit    *observability.Audit
	validate *validator.Validate
	windows  map[string]*window
	// prepaid transfer-chunk slots per sender, granted by an admitted
	// transfer-start and bounded by its validated chunk count
	allowances map[string]int
	budget     int
	now        func() time.Time
}

func NewGate(log *slog.Logger, audit *observability.Audit) *Gate {
	return &Gate{
		log:        log,
		audit:      audit,
		validate:   validator.New(),
		windows:    make(map[string]*window),
		allowances: make(map[string]int),
		budget:     domain.RateLimitPerSec,
		now:        time.Now,
	}
}

// Admit decodes and validates one raw frame from senderID. The second
// return is false when the frame must be treated as if it never
// arrived. Validation runs before the rate counter so malformed spam
// does not consume a sender's budget.
func (g *Gate) Admit(senderID string, data []byte) (domain.Wire, bool) {
	msg, err := domain.Decode(data)
	if err != nil {
		g.audit.Drop(observability.DropBadType)
		g.log.Debug("Frame rejected", "sender", senderID, "error", err)
		return nil, false
	}
	if reason, ok := g.check(msg); !ok {
		g.audit.Drop(reason)
		g.log.Debug("Frame rejected", "sender", senderID, "reason", reason)
		return nil, false
	}
	// An admitted transfer-start prepays its chunk stream: a maximum
	// artifact splits into more chunks than the one-second budget, so
	// charging them per frame would make every large transfer fail.
	if _, isChunk := msg.(domain.TransferChunk); isChunk && g.spendChunkAllowance(senderID) {
		return msg, true
	}
	if !g.CheckRateLimit(senderID) {
		g.audit.Drop(observability.DropRateLimited)
		return nil, false
	}
	switch m := msg.(type) {
	case domain.TransferStart:
		g.allowances[senderID] = m.Meta.TotalChunks
	case domain.TransferEnd:
		delete(g.allowances, senderID)
	}
	return msg, true
}

// spendChunkAllowance consumes one prepaid chunk slot, if any remain.
func (g *Gate) spendChunkAllowance(senderID string) bool {
	if n := g.allowances[senderID]; n > 0 {
		g.allowances[senderID] = n - 1
		return true
	}
	return false
}

// check applies the boundary rules: filename length and reserved
// characters, chat text length, content size. Struct tags cover the
// required fields; the character class is checked by hand, validator
// tags cannot express it cleanly.
func (g *Gate) check(msg domain.Wire) (observability.DropReason, bool) {
	if err := g.validate.Struct(msg); err != nil {
		return observability.DropBadShape, false
	}

	for _, name := range filenameFields(msg) {
		if !domain.ValidFilename(name) {
			return observability.DropBadFilename, false
		}
	}

	switch m := msg.(type) {
	case domain.Chat:
		if len(m.Text) > domain.MaxChatLen {
			return observability.DropOversize, false
		}
	case domain.Sync:
		if len(m.Content) > domain.MaxFileSize {
			return observability.DropOversize, false
		}
	case domain.TransferStart:
		if m.Meta.Size > domain.MaxFileSize {
			return observability.DropOversize, false
		}
		if m.Meta.TotalChunks != expectedChunks(m.Meta.Size) {
			return observability.DropBadShape, false
		}
	case domain.TransferChunk:
		if len(m.Data) > maxChunkData {
			return observability.DropOversize, false
		}
	}
	return "", true
}

// maxChunkData is the longest legal chunk payload: one full chunk
// after base64 expansion.
var maxChunkData = base64.StdEncoding.EncodedLen(transfer.ChunkSize)

// expectedChunks is the only chunk count a transfer of the given size
// can legally declare. A declared count that disagrees lets a sender
// buffer arbitrary data on the receiver, so it is rejected up front.
func expectedChunks(size int64) int {
	n := int((size + transfer.ChunkSize - 1) / transfer.ChunkSize)
	if n < 1 {
		n = 1
	}
	return n
}

// filenameFields lists every filename-bearing field of a message.
// Optional fields (cursor, file-open) are validated only when present;
// an absent filename is not an offense.
func filenameFields(msg domain.Wire) []string {
	switch m := msg.(type) {
	case domain.Sync:
		return []string{m.Filename}
	case domain.FileDelete:
		return []string{m.Filename}
	case domain.FileRename:
		return []string{m.OldName, m.NewName}
	case domain.TransferStart:
		return []string{m.Meta.Name}
	case domain.TransferEnd:
		return []string{m.Name}
	case domain.Cursor:
		if m.Filename != "" {
			return []string{m.Filename}
		}
	case domain.FileOpen:
		if m.Filename != "" {
			return []string{m.Filename}
		}
	case domain.Patch:
		if m.Filename != "" {
			return []string{m.Filename}
		}
	}
	return nil
}

// CheckRateLimit counts one message against senderID's fixed 1-second
// window and reports whether it fits the budget. The window resets
// lazily when now has passed resetAt. No queueing, no retry.
func (g *Gate) CheckRateLimit(senderID string) bool {
	now := g.now()
	w, ok := g.windows[senderID]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(time.Second)}
		g.windows[senderID] = w
	}
	w.count++
	return w.count <= g.budget
}

// Forget drops the rate window and any remaining chunk allowance of a
// disconnected sender.
func (g *Gate) Forget(senderID string) {
	delete(g.windows, senderID)
	delete(g.allowances, senderID)
}
