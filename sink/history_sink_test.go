package sink

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"peerdesk/domain/event"
	"peerdesk/mocks"
	"peerdesk/repositories"
)

func TestHistorySink_Persists_Chat(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockIHistoryRepository(ctrl)

	at := time.Now()
	var stored repositories.ChatEntry
	repo.EXPECT().StoreChat(gomock.Any()).
		DoAndReturn(func(entry repositories.ChatEntry) error {
			stored = entry
			return nil
		}).Times(1)

	s := NewHistorySink(repo, log, "ABC234")

	// When a chat event is consumed
	err := s.Consume(context.Background(), event.ChatPosted{
		SenderID:   "g1",
		SenderName: "alice",
		Text:       "hello",
		At:         at,
	})

	// Then it lands in the repository with the session code attached
	req.NoError(err)
	req.Equal("ABC234", stored.Code)
	req.Equal("alice", stored.Sender)
	req.Equal("hello", stored.Text)
	req.Equal(at, stored.At)
	req.NotEmpty(stored.ID)
}

func TestHistorySink_Ignores_Other_Events(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	repo := mocks.NewMockIHistoryRepository(ctrl)
	// no StoreChat expectation: any call would fail the test

	s := NewHistorySink(repo, log, "ABC234")

	req.NoError(s.Consume(context.Background(), event.ParticipantJoined{ID: "g1"}))
	req.NoError(s.Consume(context.Background(), event.DocumentUpdated{Filename: "a.js"}))
}
