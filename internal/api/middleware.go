package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

const actorHeader = "X-Actor"

type ctxKey int

const actorKey ctxKey = iota

func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(actorHeader)
		if actor == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + actorHeader + " header", Kind: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

func actorFrom(r *http.Request) string {
	a, _ := r.Context().Value(actorKey).(string)
	return a
}

// actorLimiter keeps one token bucket per actor.
type actorLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newActorLimiter(perSecond float64, burst int) *actorLimiter {
	l := rate.Limit(perSecond)
	if perSecond <= 0 {
		l = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &actorLimiter{limit: l, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

func (a *actorLimiter) allow(actor string) bool {
	a.mu.Lock()
	l, ok := a.limiters[actor]
	if !ok {
		l = rate.NewLimiter(a.limit, a.burst)
		a.limiters[actor] = l
	}
	a.mu.Unlock()
	return l.Allow()
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(actorFrom(r)) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded", Kind: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("actor", r.Header.Get(actorHeader)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
