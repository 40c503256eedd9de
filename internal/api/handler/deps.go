package handler

import (
	"context"
	"io"
	"time"

	"github.com/wardscope/wardscope/internal/uploads"
	"github.com/wardscope/wardscope/pkg/models"
)

// JobQueue is the part of the processing queue the handlers use.
type JobQueue interface {
	AddJob(id, fileName string) (models.Job, error)
	GetJob(id string) (models.Job, error)
	GetAllJobs() []models.Job
	CancelJob(id string) bool
}

// FileStore persists uploaded replays.
type FileStore interface {
	Save(originalName string, r io.Reader) (uploads.StoredFile, error)
	Remove(name string) error
	Cleanup(ctx context.Context, maxAge time.Duration) (uploads.CleanupResult, error)
	Stats() (uploads.DirStats, error)
	Dir() string
}

// JobMirror reads job snapshots mirrored to a shared cache, so jobs held by a
// previous process can still be reported.
type JobMirror interface {
	GetJob(ctx context.Context, id string) (models.Job, bool, error)
}

// IDSource hands out unique match ids.
type IDSource interface {
	Next() string
}
