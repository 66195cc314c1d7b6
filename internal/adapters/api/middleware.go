package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/poyrazK/siteverify/internal/core/domain"
	"github.com/poyrazK/siteverify/internal/core/ports"
	"github.com/rs/xid"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	CtxPrincipal contextKey = "principal"
	ctxLogger    contextKey = "logger"
)

// HashKey returns the stored form of a raw API key.
func HashKey(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

// PrincipalFrom returns the authenticated caller stored by AuthMiddleware.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(CtxPrincipal).(domain.Principal)
	return p, ok && p.PublisherID != ""
}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, CtxPrincipal, p)
}

func AuthMiddleware(repo ports.APIKeyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
				return
			}

			key := strings.TrimPrefix(authHeader, "Bearer ")
			apiKey, err := repo.GetAPIKeyByHash(r.Context(), HashKey(key))
			if err != nil {
				LoggerFrom(r.Context()).Error("api key lookup failed", "error", err)
				writeFailure(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
				return
			}

			if apiKey == nil || !apiKey.Active {
				writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or inactive API key")
				return
			}

			if apiKey.ExpiresAt != nil && apiKey.ExpiresAt.Before(time.Now()) {
				writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key expired")
				return
			}

			p := domain.Principal{PublisherID: apiKey.PublisherID, Role: apiKey.Role, KeyID: apiKey.ID}
			ctx := withPrincipal(r.Context(), p)
			ctx = context.WithValue(ctx, ctxLogger, LoggerFrom(ctx).With("publisher_id", p.PublisherID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := r.Context().Value(CtxPrincipal).(domain.Principal)
			if !ok {
				writeFailure(w, http.StatusForbidden, "FORBIDDEN", "role not found in context")
				return
			}

			allowed := false
			for _, role := range roles {
				if role == p.Role {
					allowed = true
					break
				}
			}

			if !allowed {
				writeFailure(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestID tags each request with an X-Request-ID (generated when absent),
// stores a request-scoped logger in the context and logs completion.
func RequestID(baseLogger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = xid.New().String()
			}
			logger := baseLogger.With("request_id", requestID)
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := context.WithValue(r.Context(), ctxLogger, logger)
			next.ServeHTTP(wrapped, r.WithContext(ctx))

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// LoggerFrom returns the request-scoped logger, or slog.Default().
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// CheckLimiter throttles verification checks per publisher. Each check hits a
// third-party domain, so bursts are capped independently of the attempt budget.
type CheckLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*publisherLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type publisherLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterIdleTTL is well past the one minute a limiter needs to refill, so an
// evicted publisher comes back to the same full bucket.
const limiterIdleTTL = 10 * time.Minute

// NewCheckLimiter allows perMinute checks per publisher with a burst of the
// same size. perMinute <= 0 disables limiting.
func NewCheckLimiter(perMinute int) *CheckLimiter {
	if perMinute <= 0 {
		return &CheckLimiter{limit: rate.Inf}
	}
	return &CheckLimiter{
		limiters: make(map[string]*publisherLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

func (l *CheckLimiter) Allow(publisherID string) bool {
	if l.limit == rate.Inf {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	pl, ok := l.limiters[publisherID]
	if !ok {
		pl = &publisherLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[publisherID] = pl
	}
	pl.lastSeen = now
	return pl.lim.AllowN(now, 1)
}

// sweep drops limiters idle for longer than idleTTL, at most once per idleTTL.
// Caller holds l.mu.
func (l *CheckLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for id, pl := range l.limiters {
		if now.Sub(pl.lastSeen) >= l.idleTTL {
			delete(l.limiters, id)
		}
	}
}

// Middleware rejects over-limit callers with 429. It must run after AuthMiddleware.
func (l *CheckLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())
		if !l.Allow(p.PublisherID) {
			w.Header().Set("Retry-After", "60")
			writeFailure(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many verification checks, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
