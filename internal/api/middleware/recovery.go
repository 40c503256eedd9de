package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wardscope/wardscope/internal/api/response"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR envelope and logs
// it with the request id and client address. http.ErrAbortHandler is re-raised
// so the server can drop the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			client, ok := GetClientIP(r)
			if !ok {
				client = remoteHost(r.RemoteAddr)
			}
			slog.Error("panic recovered",
				"error", rec,
				"request_id", chimw.GetReqID(r.Context()),
				"client_ip", client,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.Internal(w)
		}()
		next.ServeHTTP(w, r)
	})
}
