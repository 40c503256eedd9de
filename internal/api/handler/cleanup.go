package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/uploads"
)

type cleanupResponse struct {
	Message string `json:"message"`
	uploads.CleanupResult
}

type fileAge struct {
	*uploads.FileInfo
	AgeHours int `json:"ageHours"`
}

type uploadStatsResponse struct {
	TotalFiles  int      `json:"totalFiles"`
	TotalSize   int64    `json:"totalSize"`
	TotalSizeMB string   `json:"totalSizeMB"`
	OldestFile  *fileAge `json:"oldestFile"`
	NewestFile  *fileAge `json:"newestFile"`
	Config      struct {
		MaxFileAge string `json:"maxFileAge"`
		UploadDir  string `json:"uploadDir"`
	} `json:"config"`
}

// NewCleanupHandler returns an http.HandlerFunc for POST /api/v1/admin/cleanup.
func NewCleanupHandler(files FileStore, maxAge time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := files.Cleanup(r.Context(), maxAge)
		if err != nil {
			slog.Error("upload cleanup", "error", err)
			response.Internal(w)
			return
		}
		slog.Info("upload cleanup", "deleted", res.DeletedCount, "total", res.TotalFiles)
		response.JSON(w, cleanupResponse{
			Message:       fmt.Sprintf("Cleanup finished. %d file(s) removed", res.DeletedCount),
			CleanupResult: res,
		})
	}
}

// NewUploadStatsHandler returns an http.HandlerFunc for GET /api/v1/admin/cleanup.
func NewUploadStatsHandler(files FileStore, maxAge time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st, err := files.Stats()
		if err != nil {
			slog.Error("upload stats", "error", err)
			response.Internal(w)
			return
		}

		now := time.Now()
		resp := uploadStatsResponse{
			TotalFiles:  st.TotalFiles,
			TotalSize:   st.TotalSize,
			TotalSizeMB: fmt.Sprintf("%.2f", float64(st.TotalSize)/1024/1024),
			OldestFile:  withAge(st.OldestFile, now),
			NewestFile:  withAge(st.NewestFile, now),
		}
		resp.Config.MaxFileAge = maxAge.String()
		resp.Config.UploadDir = files.Dir()
		response.JSON(w, resp)
	}
}

func withAge(f *uploads.FileInfo, now time.Time) *fileAge {
	if f == nil {
		return nil
	}
	return &fileAge{FileInfo: f, AgeHours: int(now.Sub(f.Modified).Round(time.Hour).Hours())}
}
