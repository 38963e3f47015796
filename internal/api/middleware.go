package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type contextKey int

const (
	ctxKeyAuthUser contextKey = iota
	ctxKeyLogger
)

// AuthUser is the identity behind a verified API key.
type AuthUser struct {
	UserID string
	Email  string
	KeyID  string
}

// getUserFromContext returns the authenticated user, or nil on public routes.
func getUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(ctxKeyAuthUser).(*AuthUser)
	return u
}

// logFor returns the request-scoped logger, or the default one outside a
// request.
func logFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "r_unknown"
	}
	return "r_" + hex.EncodeToString(b)
}

// tracing assigns each request an ID, exposes it in the X-Request-ID header,
// and seeds the request-scoped logger with it.
func tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := newRequestID()
		w.Header().Set("X-Request-ID", rid)
		ctx := context.WithValue(r.Context(), ctxKeyLogger, slog.Default().With("rid", rid))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseRecorder captures the status code written by the handler.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *responseRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// observe emits one access-log line per request and feeds the metrics
// counters.
func observe(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RecordRequest()

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			switch {
			case rec.status >= 500:
				m.RecordError()
			case rec.status >= 400:
				m.RecordClientError()
			}
			logFor(r.Context()).Info("req",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"dur", time.Since(start).String(),
			)
		})
	}
}

// recoverPanics turns a handler panic into a 500 instead of killing the
// connection.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				logFor(r.Context()).Error("panic recovered", "panic", v, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request body size.
func limitBody(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth verifies the Bearer token against the api_keys table and puts
// the resolved AuthUser into the context.
func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or malformed bearer token")
			return
		}

		ak, user, err := s.store.VerifyAPIKey(token)
		if err != nil {
			logFor(r.Context()).Error("verify api key", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to verify key")
			return
		}
		if ak == nil || user == nil {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired api key")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAuthUser, &AuthUser{
			UserID: user.ID,
			Email:  user.Email,
			KeyID:  ak.ID,
		})
		ctx = context.WithValue(ctx, ctxKeyLogger, logFor(ctx).With("uid", user.ID))
		handler(w, r.WithContext(ctx))
	}
}

// chain applies middleware in order (first applied is outermost).
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
