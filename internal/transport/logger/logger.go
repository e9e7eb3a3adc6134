// Package logger carries a request-scoped slog logger through the context.
package logger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cwrk-planet/codecollab/pkg/httputil"
	"github.com/cwrk-planet/codecollab/pkg/logger"
)

type ctxKey int

const loggerKey ctxKey = iota

// WithRequestLoggerCtx puts a *slog.Logger tagged with the request id,
// path, method and trace ids into the request context.
func WithRequestLoggerCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, ok := httputil.FromContext(r.Context())
		if !ok {
			reqID = middleware.GetReqID(r.Context())
		}

		attrs := []any{
			slog.String("req_id", reqID),
			slog.String("path", r.URL.Path),
			slog.String("method", r.Method),
		}
		for _, a := range logger.AttrsFromCtx(r.Context()) {
			attrs = append(attrs, a)
		}

		l := logger.L().With(attrs...)
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
	})
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// L returns the logger from ctx, or the global one.
func L(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerKey); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return logger.L()
}

// FromRequest is L for the request's context.
func FromRequest(r *http.Request) *slog.Logger { return L(r.Context()) }
