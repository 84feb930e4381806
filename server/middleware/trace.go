package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request ID back to the client. An incoming one is kept if it's a valid UUID.
const RequestIDHeader = "X-Request-Id"

type ctxKey struct{}

// RequestID retrieves the ID that Trace assigned to the request, or uuid.Nil outside of Trace.
func RequestID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKey{}).(uuid.UUID)
	return id
}

// Trace assigns each request an ID, logs its beginning at Debug and its end at Info (or Error, for status >= 400),
// and turns a panic in h into a logged 500.
func Trace(h http.Handler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id, err := uuid.Parse(r.Header.Get(RequestIDHeader))
		if err != nil {
			id = uuid.New()
		}
		w.Header().Set(RequestIDHeader, id.String())
		logger := logger.With(zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Stringer("request_id", id))
		prefix := fmt.Sprintf("%s %s: ", r.Method, r.URL.Path)
		logger.Debug(prefix+"begin", zap.String("user-agent", r.UserAgent()), zap.String("remote_addr", r.RemoteAddr))

		lw := &writer{ResponseWriter: w}
		defer func() {
			elapsed := time.Since(start)
			if p := recover(); p != nil {
				if lw.statusCode == 0 {
					lw.WriteHeader(http.StatusInternalServerError)
				}
				logger.Error(prefix+"end: panic", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()), zap.Int("status_code", lw.statusCode))
				return
			}
			if lw.statusCode == 0 { // nothing written: net/http sends a 200
				lw.statusCode = http.StatusOK
			}
			if lw.statusCode >= 400 {
				logger.Error(prefix+"end: error", zap.Int("status_code", lw.statusCode), zap.Duration("elapsed", elapsed))
				return
			}
			logger.Info(prefix+"end: ok", zap.Int("status_code", lw.statusCode), zap.Int("content_length", lw.contentLength), zap.Duration("elapsed", elapsed))
		}()
		h.ServeHTTP(lw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	}
}

// writer records the status code and the number of body bytes written.
type writer struct {
	http.ResponseWriter
	statusCode, contentLength int
}

func (w *writer) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.contentLength += n
	return n, err
}

func (w *writer) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}
