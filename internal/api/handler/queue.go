package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/queue"
	"github.com/wardscope/wardscope/pkg/models"
)

const interruptedMessage = "Processing was interrupted by a server restart"

type jobView struct {
	ID            string                  `json:"id"`
	FileName      string                  `json:"fileName"`
	Status        models.JobStatus        `json:"status"`
	Progress      int                     `json:"progress"`
	Phase         string                  `json:"phase,omitempty"`
	EstimatedTime string                  `json:"estimatedTime"`
	CreatedAt     time.Time               `json:"createdAt"`
	StartedAt     *time.Time              `json:"startedAt,omitempty"`
	CompletedAt   *time.Time              `json:"completedAt,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Result        []models.PlayerAnalysis `json:"result,omitempty"`
}

func newJobView(j models.Job) jobView {
	return jobView{
		ID:            j.ID,
		FileName:      j.FileName,
		Status:        j.Status,
		Progress:      int(math.Round(j.Progress)),
		Phase:         j.Phase,
		EstimatedTime: queue.FormatEstimate(j),
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		Error:         j.Error,
		Result:        j.Result,
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/v1/queue/{id}.
// Jobs unknown to the queue are looked up in mirror, which may be nil.
func NewGetJobHandler(q JobQueue, mirror JobMirror) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "job id is required", nil)
			return
		}

		job, err := q.GetJob(id)
		if errors.Is(err, queue.ErrJobNotFound) {
			if mirrored, ok := lookupMirrored(r.Context(), mirror, id); ok {
				response.JSON(w, newJobView(mirrored))
				return
			}
			response.NotFound(w, response.CodeJobNotFound, "Job not found")
			return
		}
		if err != nil {
			response.Internal(w)
			return
		}

		response.JSON(w, newJobView(job))
	}
}

// lookupMirrored reads a job this process does not hold. A mirrored job that
// never finished belonged to a process that has gone away, so it is reported
// as failed.
func lookupMirrored(ctx context.Context, mirror JobMirror, id string) (models.Job, bool) {
	if mirror == nil {
		return models.Job{}, false
	}
	job, found, err := mirror.GetJob(ctx, id)
	if err != nil {
		slog.Warn("read mirrored job", "job_id", id, "error", err)
		return models.Job{}, false
	}
	if !found {
		return models.Job{}, false
	}
	if !job.Status.Terminal() {
		job.Status = models.JobStatusFailed
		job.Phase = queue.PhaseFailed
		job.Error = interruptedMessage
	}
	return job, true
}

// NewCancelJobHandler returns an http.HandlerFunc for DELETE /api/v1/queue/{id}.
func NewCancelJobHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "job id is required", nil)
			return
		}

		if q.CancelJob(id) {
			response.JSON(w, map[string]any{"id": id, "cancelled": true})
			return
		}

		job, err := q.GetJob(id)
		if err != nil {
			response.NotFound(w, response.CodeJobNotFound, "Job not found")
			return
		}
		response.Error(w, http.StatusConflict, response.CodeJobNotCancellable,
			"Job has already finished", map[string]string{"status": string(job.Status)})
	}
}

// NewQueueStatsHandler returns an http.HandlerFunc for GET /api/v1/queue/stats.
func NewQueueStatsHandler(q JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, queue.ComputeStats(q.GetAllJobs()))
	}
}
