package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"resell-reports/internal/model"
)

// UserHeader carries the caller identity resolved by the upstream gateway.
const UserHeader = "X-User-ID"

type userKey struct{}

// Logger attaches a request-scoped logger to the context and logs each
// completed request.
func Logger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			reqLogger := logger.With().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", req.RemoteAddr).
				Str("request_id", middleware.GetReqID(req.Context())).
				Logger()

			ctx := reqLogger.WithContext(req.Context())
			req = req.WithContext(ctx)

			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, req)

			reqLogger.Debug().
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}

// Identity rejects requests without a caller identity and stores it in the
// context for handlers.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		userID := strings.TrimSpace(req.Header.Get(UserHeader))
		if userID == "" {
			writeError(w, req, model.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(req.Context(), userKey{}, userID)
		ctx = zerolog.Ctx(ctx).With().Str("user_id", userID).Logger().WithContext(ctx)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// UserID returns the caller identity stored by Identity.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userKey{}).(string)
	return userID
}
