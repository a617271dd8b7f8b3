package workers

import (
	"context"
	"log/slog"
	"time"

	"peerdesk/domain"
	"peerdesk/repositories"
)

// Snapshotter periodically writes the live workspace to disk so a
// crashed host can reopen the session where it left off.
type Snapshotter struct {
	log        *slog.Logger
	interval   time.Duration
	code       string
	snapshot   func() (domain.WorkspaceData, error)
	repository repositories.IHistoryRepository
}

func NewSnapshotter(
	log *slog.Logger,
	interval time.Duration,
	code string,
	snapshot func() (domain.WorkspaceData, error),
	repository repositories.IHistoryRepository,
) *Snapshotter {
	return &Snapshotter{
		log:        log,
		interval:   interval,
		code:       code,
		snapshot:   snapshot,
		repository: repository,
	}
}

func (w *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := w.snapshot()
			if err != nil {
				// engine is gone, nothing left to snapshot
				return nil
			}
			if err := w.repository.StoreSnapshot(w.code, snap); err != nil {
				w.log.Warn("Failed to persist workspace snapshot", "error", err)
				continue
			}
			w.log.Debug("Workspace snapshot persisted", "files", len(snap.Files))
		}
	}
}
