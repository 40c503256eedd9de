package store

import (
	"context"
	"log/slog"

	"github.com/wardscope/wardscope/pkg/models"
)

// Archiver persists every completed queue job to the Store. Other transitions
// are ignored; archived analyses outlive queue eviction.
type Archiver struct {
	store  Store
	logger *slog.Logger
}

func NewArchiver(s Store, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{store: s, logger: logger}
}

func (a *Archiver) JobUpdated(ctx context.Context, job models.Job) {
	ra, ok := models.NewReplayAnalysis(job)
	if !ok {
		return
	}
	if err := a.store.SaveAnalysis(ctx, ra); err != nil {
		a.logger.Error("archive analysis", "job_id", job.ID, "error", err)
		return
	}
	a.logger.Info("analysis archived", "job_id", job.ID, "players", len(ra.Players))
}

func (a *Archiver) JobRemoved(context.Context, string) {}
