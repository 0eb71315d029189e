package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"simustock/pkg/simustock"
)

// auditWriter records the status and the internal error detail of a response
// so the access log can report what the client was not told.
type auditWriter struct {
	middleware.WrapResponseWriter
	detail string
}

func (w *auditWriter) SetErrorMessage(message string) {
	w.detail = message
}

func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			aw := &auditWriter{WrapResponseWriter: middleware.NewWrapResponseWriter(w, r.ProtoMajor)}

			next.ServeHTTP(aw, r)

			status := aw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := append(requestAttrs(r),
				slog.Int("status", status),
				slog.Int("bytes", aw.BytesWritten()),
				slog.Int64("duration_ms", time.Since(started).Milliseconds()),
			)
			if session := r.Header.Get(SessionHeader); session != "" {
				attrs = append(attrs, slog.String("session_id", session))
			}
			if aw.detail != "" {
				attrs = append(attrs, slog.String("error_message", aw.detail))
			}
			logger.LogAttrs(r.Context(), levelForStatus(status), "http request completed", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func requestAttrs(r *http.Request) []slog.Attr {
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	return []slog.Attr{
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("route", route),
		slog.String("remote_ip", r.RemoteAddr),
	}
}

// recoveryLoggingMiddleware turns a handler panic into a 500 envelope unless
// the handler already started the response.
func recoveryLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				attrs := append(requestAttrs(r),
					slog.String("panic", fmt.Sprint(recovered)),
					slog.String("stack", string(debug.Stack())),
				)
				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", attrs...)

				if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
					return
				}
				err := simustock.NewError(simustock.ErrCodeInternal, fmt.Sprintf("panic: %v", recovered))
				writeErrorResponse(w, r, simustock.DefaultLocale(), err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
