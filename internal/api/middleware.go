package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chromaflow/internal/identity"
	"chromaflow/internal/logging"
)

const headerRequestID = "X-Request-Id"

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequest tags the request context with a correlation id and logs the
// outcome at debug, or at warn for server errors.
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(headerRequestID, rid)
		ctx := logging.WithRequestID(r.Context(), rid)
		if uid := r.Header.Get(identity.HeaderUserID); uid != "" {
			ctx = logging.WithUserID(ctx, uid)
		}
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)

		logger := logging.WithContext(ctx, s.logger)
		attrs := []logging.Attr{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(started)),
		}
		if rec.status >= http.StatusInternalServerError {
			logging.WarnWithContext(logger, "api request failed", "api_request_failed",
				append(attrs, logging.String(logging.FieldImpact, "client request was not served"))...)
			return
		}
		logger.Debug("api request", logging.Args(attrs...)...)
	})
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				logging.ErrorWithContext(s.logger, "api handler panic", "api_panic",
					logging.String("error", fmt.Sprint(err)),
					logging.String("path", r.URL.Path))
				s.writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects callers the identity policy does not treat as admin.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, admin := s.caller(r); !admin {
			s.writeError(w, http.StatusForbidden, "administrator rights required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
