package ratelimit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"peptideprofessor/httputil"
	"peptideprofessor/logging"
	"peptideprofessor/metrics"
)

// Limiter is a per-client sliding-window rate limiter. A client is admitted
// at time T when fewer than limit admissions fall in (T-window, T].
type Limiter struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter admitting limit requests per window per client.
func New(limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether id may make another request now. Stale timestamps
// are pruned whether or not the request is admitted.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := prune(l.clients[id], now, l.window)
	if len(recent) >= l.limit {
		l.clients[id] = recent
		return false
	}
	l.clients[id] = append(recent, now)
	return true
}

// prune drops timestamps at or before now-window. The slice is ordered, so
// the kept suffix is reused in place.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

// Sweep forgets clients with no admission inside the current window and
// returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, ts := range l.clients {
		if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= l.window {
			delete(l.clients, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := l.Sweep(); n > 0 {
				zap.L().Debug("rate limiter sweep", zap.Int("evicted", n), zap.Int("tracked", l.Len()))
			}
		}
	}
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// ClientID identifies the caller by the first X-Forwarded-For hop, then
// X-Real-IP, then the literal "unknown".
func ClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx != -1 {
			fwd = fwd[:idx]
		}
		if id := strings.TrimSpace(fwd); id != "" {
			return id
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "unknown"
}

// Middleware rate limits POST requests whose path starts with prefix.
// Rejected requests get 429 without a Retry-After hint.
func Middleware(l *Limiter, prefix string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
			id := ClientID(r)
			admitted := l.Allow(id)
			m.Admission(admitted)
			if !admitted {
				logging.FromContext(r.Context()).Warn("rate limit exceeded",
					zap.String("client", logging.MaskIP(id)),
					zap.String("path", r.URL.Path),
				)
				httputil.WriteError(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
