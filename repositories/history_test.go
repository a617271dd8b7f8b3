package repositories

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"peerdesk/domain"
)

func testRepository(t *testing.T, limit *int) HistoryRepository {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHistoryRepository(db, log, limit)
}

func TestHistory_Chat_Is_Returned_Newest_First(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t, nil)

	base := time.Now()
	for i := 0; i < 3; i++ {
		req.NoError(repo.StoreChat(ChatEntry{
			ID:     uuid.New(),
			Code:   "ABC234",
			Sender: "alice",
			Text:   fmt.Sprintf("line %d", i),
			At:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, cursor, err := repo.GetChat("ABC234", nil)
	req.NoError(err)
	req.Nil(cursor)
	req.Len(entries, 3)
	req.Equal("line 2", entries[0].Text)
	req.Equal("line 0", entries[2].Text)
}

func TestHistory_Chat_Pagination(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t, lo.ToPtr(2))

	base := time.Now()
	for i := 0; i < 5; i++ {
		req.NoError(repo.StoreChat(ChatEntry{
			ID:   uuid.New(),
			Code: "ABC234",
			Text: fmt.Sprintf("line %d", i),
			At:   base.Add(time.Duration(i) * time.Second),
		}))
	}

	// First page holds the newest two
	page1, cursor, err := repo.GetChat("ABC234", nil)
	req.NoError(err)
	req.NotNil(cursor)
	req.Len(page1, 2)
	req.Equal("line 4", page1[0].Text)

	// The cursor resumes where the first page stopped
	page2, _, err := repo.GetChat("ABC234", cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal("line 2", page2[0].Text)
}

func TestHistory_Chat_Is_Scoped_By_Session(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t, nil)

	req.NoError(repo.StoreChat(ChatEntry{ID: uuid.New(), Code: "AAAAAA", Text: "here", At: time.Now()}))
	req.NoError(repo.StoreChat(ChatEntry{ID: uuid.New(), Code: "BBBBBB", Text: "elsewhere", At: time.Now()}))

	entries, _, err := repo.GetChat("AAAAAA", nil)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("here", entries[0].Text)
}

func TestHistory_Snapshot_Round_Trip(t *testing.T) {
	req := require.New(t)
	repo := testRepository(t, nil)

	// No snapshot yet
	snap, err := repo.LatestSnapshot("ABC234")
	req.NoError(err)
	req.Nil(snap)

	first := domain.WorkspaceData{
		Files:      map[string]domain.FileState{"a.js": {Content: "v1", Version: 1}},
		ActiveFile: "a.js",
	}
	req.NoError(repo.StoreSnapshot("ABC234", first))

	// A later snapshot replaces the earlier one
	second := domain.WorkspaceData{
		Files: map[string]domain.FileState{"a.js": {Content: "v2", Version: 2}},
	}
	req.NoError(repo.StoreSnapshot("ABC234", second))

	snap, err = repo.LatestSnapshot("ABC234")
	req.NoError(err)
	req.NotNil(snap)
	req.Equal(int64(2), snap.Files["a.js"].Version)
	req.Equal("v2", snap.Files["a.js"].Content)
}
