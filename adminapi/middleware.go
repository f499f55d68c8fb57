/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/acronis/go-governor/log"
)

const headerRequestID = "X-Request-ID"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
)

// NewContextWithRequestID creates a new context with request id.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext extracts request id from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return s
	}
	return ""
}

// NewContextWithLogger creates a new context with logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext extracts logger from the context. Disabled logger is returned if there is no one.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	if logger, ok := ctx.Value(ctxKeyLogger).(log.FieldLogger); ok {
		return logger
	}
	return log.NewDisabledLogger()
}

// requestID reads X-Request-ID request's HTTP header and generates a new one (xid) if it's empty.
// The id is put into the request's context, into the context logger and returned in X-Request-ID header.
func requestID(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = xid.New().String()
			}
			rw.Header().Set(headerRequestID, id)
			ctx := NewContextWithRequestID(r.Context(), id)
			ctx = NewContextWithLogger(ctx, logger.With(log.String("request_id", id)))
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// logging logs every completed request with its status and duration.
func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		wrw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
		next.ServeHTTP(wrw, r)
		duration := time.Since(startTime)
		GetLoggerFromContext(r.Context()).Info(
			fmt.Sprintf("response completed in %.3fs", duration.Seconds()),
			log.String("method", r.Method),
			log.String("uri", r.RequestURI),
			log.Int("status", wrw.Status()),
			log.Int("bytes_sent", wrw.BytesWritten()),
			log.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

// recoverer responds with 500 and logs the panic instead of dropping the connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger := GetLoggerFromContext(r.Context())
				logger.Error(fmt.Sprintf("panic: %+v", p))
				respondError(rw, http.StatusInternalServerError, NewError(ErrCodeInternal, "Internal error."), logger)
			}
		}()
		next.ServeHTTP(rw, r)
	})
}
