package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/queue"
)

const (
	// FormField is the multipart field carrying the replay.
	FormField = "replay"

	multipartOverhead = 1 << 20
	maxFormMemory     = 8 << 20
)

// AllowedExtensions lists accepted replay file extensions, lower case.
var AllowedExtensions = []string{".rofl"}

// UploadOptions configures the upload endpoints.
type UploadOptions struct {
	MaxBytes int64
}

type uploadResponse struct {
	MatchID       string    `json:"matchId"`
	FileName      string    `json:"fileName"`
	FileSize      int64     `json:"fileSize"`
	UploadedAt    time.Time `json:"uploadedAt"`
	QueueStatus   string    `json:"queueStatus"`
	EstimatedTime string    `json:"estimatedTime"`
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/upload.
func NewUploadHandler(q JobQueue, files FileStore, ids IDSource, opts UploadOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBytes+multipartOverhead)
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
					"File exceeds the maximum upload size", map[string]int64{"maxBytes": opts.MaxBytes})
				return
			}
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"Request must be multipart/form-data", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile(FormField)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeMissingFile,
				"No file was sent in the \""+FormField+"\" field", nil)
			return
		}
		defer file.Close()

		if !allowedExtension(header.Filename) {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidFormat,
				"Invalid format. Only .rofl files are accepted", nil)
			return
		}
		if header.Size > opts.MaxBytes {
			response.Error(w, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge,
				"File exceeds the maximum upload size", map[string]int64{"maxBytes": opts.MaxBytes, "fileSize": header.Size})
			return
		}
		if header.Size == 0 {
			response.Error(w, http.StatusBadRequest, response.CodeEmptyFile, "Empty files are not allowed", nil)
			return
		}

		stored, err := files.Save(header.Filename, file)
		if err != nil {
			slog.Error("save upload", "file_name", header.Filename, "error", err)
			response.Error(w, http.StatusInternalServerError, response.CodeUploadFailed,
				"Failed to store the uploaded file", nil)
			return
		}

		matchID := ids.Next()
		job, err := q.AddJob(matchID, stored.Name)
		if err != nil {
			if rmErr := files.Remove(stored.Name); rmErr != nil {
				slog.Warn("remove orphaned upload", "file_name", stored.Name, "error", rmErr)
			}
			if errors.Is(err, queue.ErrDuplicateJob) {
				response.Error(w, http.StatusConflict, response.CodeDuplicateJob, "A job with this id already exists", nil)
				return
			}
			slog.Error("enqueue upload", "job_id", matchID, "error", err)
			response.Internal(w)
			return
		}

		slog.Info("replay uploaded", "job_id", matchID, "file_name", stored.Name, "size", stored.Size)

		response.Created(w, uploadResponse{
			MatchID:       matchID,
			FileName:      stored.OriginalName,
			FileSize:      stored.Size,
			UploadedAt:    stored.SavedAt.UTC(),
			QueueStatus:   string(job.Status),
			EstimatedTime: queue.FormatEstimate(job),
		})
	}
}

// NewUploadConfigHandler returns an http.HandlerFunc for GET /api/v1/upload.
func NewUploadConfigHandler(opts UploadOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]any{
			"status":            "ok",
			"maxFileSize":       opts.MaxBytes,
			"allowedExtensions": AllowedExtensions,
			"formField":         FormField,
		})
	}
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}
