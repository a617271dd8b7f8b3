// Package sink holds the EventSink implementations hanging off the
// engine's fan-out.
package sink

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"peerdesk/domain/event"
	"peerdesk/repositories"
)

// HistorySink persists chat lines as they happen. Everything else on
// the event stream passes through untouched.
type HistorySink struct {
	repository repositories.IHistoryRepository
	log        *slog.Logger
	code       string
}

func NewHistorySink(repository repositories.IHistoryRepository, log *slog.Logger, code string) *HistorySink {
	return &HistorySink{repository: repository, log: log, code: code}
}

// Consume implements the EventSink interface.
func (s *HistorySink) Consume(_ context.Context, e event.DomainEvent) error {
	chat, ok := e.(event.ChatPosted)
	if !ok {
		return nil
	}
	return s.repository.StoreChat(repositories.ChatEntry{
		ID:       uuid.New(),
		Code:     s.code,
		SenderID: chat.SenderID,
		Sender:   chat.SenderName,
		Text:     chat.Text,
		At:       chat.At,
	})
}
