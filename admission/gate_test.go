package admission

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"peerdesk/domain"
	"peerdesk/observability"
	"peerdesk/transfer"
)

func testGate() (*Gate, *observability.Audit) {
	audit := observability.NewAudit()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGate(log, audit), audit
}

func frame(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	return data
}

func TestGate_Rejects_Unknown_Type(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	// When a frame carries a type outside the closed set
	_, ok := gate.Admit("peer-1", frame(t, map[string]any{"type": "evil-op"}))

	// Then it is dropped regardless of other fields
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropBadType))
}

func TestGate_Rejects_Non_Object_Input(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	for _, raw := range []string{`"hello"`, `42`, `[1,2]`, `{not json`} {
		_, ok := gate.Admit("peer-1", []byte(raw))
		req.False(ok, "input %q must be rejected", raw)
	}
	req.Equal(uint64(4), audit.DropCount(observability.DropBadType))
}

func TestGate_Rejects_Reserved_Filename_Characters(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	// Each reserved character taints an otherwise valid sync frame
	for _, c := range `/\<>:"|?*` {
		name := "ma" + string(c) + "in.js"
		_, ok := gate.Admit("peer-1", frame(t, map[string]any{
			"type": "sync", "filename": name, "content": "x", "version": 1,
		}))
		req.False(ok, "filename %q must be rejected", name)
	}
	req.Equal(uint64(9), audit.DropCount(observability.DropBadFilename))
}

func TestGate_Rejects_Overlong_Filename(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	name := strings.Repeat("a", domain.MaxFilenameLen+1)
	_, ok := gate.Admit("peer-1", frame(t, map[string]any{
		"type": "file-delete", "filename": name,
	}))
	req.False(ok)

	// The boundary value itself passes
	_, ok = gate.Admit("peer-1", frame(t, map[string]any{
		"type": "file-delete", "filename": strings.Repeat("a", domain.MaxFilenameLen),
	}))
	req.True(ok)
}

func TestGate_Rejects_Overlong_Chat(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	_, ok := gate.Admit("peer-1", frame(t, map[string]any{
		"type": "chat", "text": strings.Repeat("x", domain.MaxChatLen+1),
	}))
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropOversize))

	_, ok = gate.Admit("peer-1", frame(t, map[string]any{
		"type": "chat", "text": strings.Repeat("x", domain.MaxChatLen),
	}))
	req.True(ok)
}

func TestGate_Rejects_Rename_With_Bad_Destination(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	_, ok := gate.Admit("peer-1", frame(t, map[string]any{
		"type": "file-rename", "oldName": "a.js", "newName": "b|c.js",
	}))
	req.False(ok)
}

func TestGate_Accepts_Valid_Frames(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	msg, ok := gate.Admit("peer-1", frame(t, map[string]any{
		"type": "sync", "filename": "main.js", "content": "// hi", "version": 3,
	}))
	req.True(ok)
	sync, isSync := msg.(domain.Sync)
	req.True(isSync)
	req.Equal("main.js", sync.Filename)
	req.Equal(int64(3), sync.Version)
}

func TestGate_RateLimit_Budget_And_Reset(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	payload := frame(t, map[string]any{"type": "ack"})

	// Given 121 messages within one rolling second
	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("noisy", payload)
		req.True(ok, "message %d should pass", i+1)
	}

	// Then the 121st is rejected
	_, ok := gate.Admit("noisy", payload)
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropRateLimited))

	// And after the window resets the counter restarts at zero
	now = now.Add(1100 * time.Millisecond)
	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("noisy", payload)
		req.True(ok, "post-reset message %d should pass", i+1)
	}
}

func TestGate_RateLimit_Is_Per_Sender(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	payload := frame(t, map[string]any{"type": "ack"})

	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("loud", payload)
		req.True(ok)
	}
	_, ok := gate.Admit("loud", payload)
	req.False(ok)

	// A different sender is unaffected
	_, ok = gate.Admit("quiet", payload)
	req.True(ok)
}

func TestGate_Malformed_Frames_Do_Not_Consume_Budget(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	for i := 0; i < 500; i++ {
		_, ok := gate.Admit("prober", []byte(fmt.Sprintf(`{"type":"nope-%d"}`, i)))
		req.False(ok)
	}

	// The prober's valid traffic still has its full budget
	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("prober", frame(t, map[string]any{"type": "ack"}))
		req.True(ok)
	}
}

func TestGate_Prepaid_Transfer_Stream_Clears_Rate_Budget(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	// A maximum artifact splits into more chunks than one second's
	// budget allows
	total := (domain.MaxFileSize + transfer.ChunkSize - 1) / transfer.ChunkSize
	req.Greater(total, domain.RateLimitPerSec)

	_, ok := gate.Admit("uploader", frame(t, map[string]any{
		"type": "transfer-start",
		"meta": map[string]any{"name": "big.bin", "size": domain.MaxFileSize, "totalChunks": total},
	}))
	req.True(ok)

	// When the whole declared chunk stream lands inside one window
	chunk := frame(t, map[string]any{"type": "transfer-chunk", "index": 0, "data": "AAAA"})
	for i := 0; i < total; i++ {
		_, ok := gate.Admit("uploader", chunk)
		req.True(ok, "chunk %d should pass", i)
	}
	_, ok = gate.Admit("uploader", frame(t, map[string]any{"type": "transfer-end", "name": "big.bin"}))
	req.True(ok)
	req.Zero(audit.DropCount(observability.DropRateLimited))
}

func TestGate_Unsolicited_Chunks_Stay_On_The_Budget(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	// No transfer-start was admitted, so chunks get no free ride
	chunk := frame(t, map[string]any{"type": "transfer-chunk", "index": 0, "data": "AAAA"})
	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("flooder", chunk)
		req.True(ok)
	}
	_, ok := gate.Admit("flooder", chunk)
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropRateLimited))
}

func TestGate_Rejects_Transfer_Meta_With_Wrong_Chunk_Count(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	// The declared count disagrees with the declared size
	_, ok := gate.Admit("liar", frame(t, map[string]any{
		"type": "transfer-start",
		"meta": map[string]any{"name": "big.bin", "size": domain.MaxFileSize, "totalChunks": 1 << 20},
	}))
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropBadShape))

	// The only count the size supports passes
	total := (domain.MaxFileSize + transfer.ChunkSize - 1) / transfer.ChunkSize
	_, ok = gate.Admit("liar", frame(t, map[string]any{
		"type": "transfer-start",
		"meta": map[string]any{"name": "big.bin", "size": domain.MaxFileSize, "totalChunks": total},
	}))
	req.True(ok)

	// An empty artifact is one chunk, never zero
	_, ok = gate.Admit("liar", frame(t, map[string]any{
		"type": "transfer-start",
		"meta": map[string]any{"name": "empty.bin", "size": 0, "totalChunks": 1},
	}))
	req.True(ok)
}

func TestGate_Rejects_Oversized_Chunk_Payload(t *testing.T) {
	req := require.New(t)
	gate, audit := testGate()

	limit := base64.StdEncoding.EncodedLen(transfer.ChunkSize)
	_, ok := gate.Admit("peer-1", frame(t, map[string]any{
		"type": "transfer-chunk", "index": 0, "data": strings.Repeat("A", limit+1),
	}))
	req.False(ok)
	req.Equal(uint64(1), audit.DropCount(observability.DropOversize))

	// One full chunk after base64 expansion is the boundary
	_, ok = gate.Admit("peer-1", frame(t, map[string]any{
		"type": "transfer-chunk", "index": 0, "data": strings.Repeat("A", limit),
	}))
	req.True(ok)
}

func TestGate_Forget_Clears_Chunk_Allowance(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	total := (domain.MaxFileSize + transfer.ChunkSize - 1) / transfer.ChunkSize
	_, ok := gate.Admit("gone", frame(t, map[string]any{
		"type": "transfer-start",
		"meta": map[string]any{"name": "big.bin", "size": domain.MaxFileSize, "totalChunks": total},
	}))
	req.True(ok)
	gate.Forget("gone")

	// With the allowance gone, chunks burn the ordinary budget again
	chunk := frame(t, map[string]any{"type": "transfer-chunk", "index": 0, "data": "AAAA"})
	for i := 0; i < domain.RateLimitPerSec; i++ {
		_, ok := gate.Admit("gone", chunk)
		req.True(ok)
	}
	_, ok = gate.Admit("gone", chunk)
	req.False(ok)
}

func TestGate_Forget_Clears_Window(t *testing.T) {
	req := require.New(t)
	gate, _ := testGate()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	payload := frame(t, map[string]any{"type": "ack"})

	for i := 0; i <= domain.RateLimitPerSec; i++ {
		gate.Admit("gone", payload)
	}
	gate.Forget("gone")

	_, ok := gate.Admit("gone", payload)
	req.True(ok)
}
