package response

import (
	"encoding/json"
	"net/http"
)

// Stable error codes returned in the error envelope.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidFormat      = "INVALID_FORMAT"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeEmptyFile          = "EMPTY_FILE"
	CodeMissingFile        = "MISSING_FILE"
	CodeUploadFailed       = "UPLOAD_FAILED"
	CodeJobNotFound        = "JOB_NOT_FOUND"
	CodeJobNotCancellable  = "JOB_NOT_CANCELLABLE"
	CodeDuplicateJob       = "DUPLICATE_JOB"
	CodeNotFound           = "NOT_FOUND"
	CodeArchiveUnavailable = "ARCHIVE_UNAVAILABLE"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeDegraded           = "DEGRADED"
	CodeInternal           = "INTERNAL_ERROR"
)

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// NotFound writes a 404 with the given code.
func NotFound(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusNotFound, code, message, nil)
}

// Internal writes a generic 500 without leaking the underlying error.
func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternal, "An unexpected error occurred", nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
