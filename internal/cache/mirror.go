package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/wardscope/wardscope/pkg/models"
)

// StatusMirror copies queue job snapshots into the cache so other processes
// can read job state. Failures are logged and never reach the queue.
type StatusMirror struct {
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatusMirror(c Cache, ttl time.Duration, logger *slog.Logger) *StatusMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusMirror{cache: c, ttl: ttl, logger: logger}
}

func (m *StatusMirror) JobUpdated(ctx context.Context, job models.Job) {
	if err := m.cache.SetJob(ctx, job, m.ttl); err != nil {
		m.logger.Warn("mirror job status", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

func (m *StatusMirror) JobRemoved(ctx context.Context, id string) {
	if err := m.cache.Delete(ctx, JobStatusKey(id)); err != nil {
		m.logger.Warn("remove mirrored job", "job_id", id, "error", err)
	}
}
