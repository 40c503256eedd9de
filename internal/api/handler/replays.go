package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/cache"
	"github.com/wardscope/wardscope/internal/store"
	"github.com/wardscope/wardscope/pkg/models"
)

const (
	defaultReplayListLimit = 20
	DefaultReplayCacheTTL  = 10 * time.Minute
)

// ReplayHandlers serves completed analyses. The archive and cache are optional;
// without an archive only analyses still held by the queue or its status mirror
// are found.
type ReplayHandlers struct {
	queue   JobQueue
	archive store.Store
	cache   cache.Cache
	ttl     time.Duration
}

func NewReplayHandlers(q JobQueue, archive store.Store, c cache.Cache, ttl time.Duration) *ReplayHandlers {
	if ttl <= 0 {
		ttl = DefaultReplayCacheTTL
	}
	return &ReplayHandlers{queue: q, archive: archive, cache: c, ttl: ttl}
}

// Get handles GET /api/v1/replays/{matchId}.
func (h *ReplayHandlers) Get(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchId")
	if matchID == "" {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "matchId is required", nil)
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		if b, found, err := h.cache.Get(ctx, cache.ReplayKey(matchID)); err == nil && found {
			var ra models.ReplayAnalysis
			if json.Unmarshal(b, &ra) == nil {
				response.JSON(w, ra)
				return
			}
		}
	}

	if h.archive != nil {
		ra, err := h.archive.GetAnalysis(ctx, matchID)
		switch {
		case err == nil:
			h.remember(r, ra)
			response.JSON(w, ra)
			return
		case !errors.Is(err, store.ErrNotFound):
			slog.Error("load archived analysis", "job_id", matchID, "error", err)
			response.Internal(w)
			return
		}
	}

	if job, err := h.queue.GetJob(matchID); err == nil {
		if ra, ok := models.NewReplayAnalysis(job); ok {
			response.JSON(w, ra)
			return
		}
	}

	if h.cache != nil {
		if job, found, err := h.cache.GetJob(ctx, matchID); err == nil && found {
			if ra, ok := models.NewReplayAnalysis(job); ok {
				response.JSON(w, ra)
				return
			}
		}
	}

	response.NotFound(w, response.CodeNotFound, "No completed analysis for this match")
}

// List handles GET /api/v1/replays.
func (h *ReplayHandlers) List(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		response.NotFound(w, response.CodeArchiveUnavailable, "The analysis archive is not configured")
		return
	}

	limit := defaultReplayListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "limit must be a positive integer", nil)
			return
		}
		limit = n
	}

	list, err := h.archive.ListAnalyses(r.Context(), limit)
	if err != nil {
		slog.Error("list archived analyses", "error", err)
		response.Internal(w)
		return
	}
	if list == nil {
		list = []*models.ReplayAnalysis{}
	}
	response.JSON(w, list)
}

func (h *ReplayHandlers) remember(r *http.Request, ra *models.ReplayAnalysis) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(ra)
	if err != nil {
		return
	}
	if err := h.cache.Set(r.Context(), cache.ReplayKey(ra.MatchID), b, h.ttl); err != nil {
		slog.Warn("cache archived analysis", "job_id", ra.MatchID, "error", err)
	}
}
