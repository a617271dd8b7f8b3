//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"peerdesk/domain"
)

type IHistoryRepository interface {
	StoreChat(entry ChatEntry) error
	GetChat(code string, cursor *string) ([]ChatEntry, *string, error)
	StoreSnapshot(code string, snap domain.WorkspaceData) error
	LatestSnapshot(code string) (*domain.WorkspaceData, error)
}

// HistoryRepository persists what a session leaves behind: the chat
// log and periodic workspace snapshots for crash recovery.
type HistoryRepository struct {
	db         *badger.DB
	log        *slog.Logger
	limitChats *int
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, limitChats *int) HistoryRepository {
	return HistoryRepository{db: db, log: log, limitChats: limitChats}
}

type ChatEntry struct {
	ID       uuid.UUID
	Code     string
	SenderID string
	Sender   string
	Text     string
	At       time.Time
}

// StoreChat persists one chat line.
// The key is formatted as "chat:{code}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if
//     two lines arrive at the same nanosecond.
func (r HistoryRepository) StoreChat(entry ChatEntry) error {
	key := fmt.Sprintf("chat:%s:%019d:%s",
		entry.Code,
		entry.At.UnixNano(),
		entry.ID,
	)
	bytes, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetChat retrieves the chat log for a session using a prefix scan,
// newest first. Thanks to the padded timestamp in the key, entries
// are naturally sorted by time. It stops once the configured
// limitChats is reached; the returned cursor resumes the scan.
func (r HistoryRepository) GetChat(code string, cursor *string) ([]ChatEntry, *string, error) {
	var entries []ChatEntry
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("chat:%s:", code)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitChats != nil && len(entries) == *r.limitChats {
				r.log.Debug(fmt.Sprintf("Maximum of %d chat entries reached", *r.limitChats))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				var entry ChatEntry
				if err := json.Unmarshal(value, &entry); err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if lastKey == "" || r.limitChats == nil || len(entries) < *r.limitChats {
		return entries, nil, nil
	}
	return entries, &lastKey, nil
}

// StoreSnapshot overwrites the recovery snapshot for a session. One
// key per session; history of snapshots is not kept.
func (r HistoryRepository) StoreSnapshot(code string, snap domain.WorkspaceData) error {
	key := fmt.Sprintf("ws:%s", code)
	bytes, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// LatestSnapshot returns the stored recovery snapshot, or nil when
// the session has none.
func (r HistoryRepository) LatestSnapshot(code string) (*domain.WorkspaceData, error) {
	var snap *domain.WorkspaceData
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(fmt.Sprintf("ws:%s", code)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(value []byte) error {
			var s domain.WorkspaceData
			if err := json.Unmarshal(value, &s); err != nil {
				return err
			}
			snap = &s
			return nil
		})
	})
	return snap, err
}
