package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IPRateLimiter holds one token-bucket limiter per client IP.
type IPRateLimiter struct {
	ips    sync.Map
	config limiterConfig
}

type limiterConfig struct {
	rps   rate.Limit
	burst int
}

// NewIPRateLimiter builds a limiter allowing rps requests/second per IP,
// with the given burst, and starts a background cleanup loop.
func NewIPRateLimiter(rps rate.Limit, burst int) *IPRateLimiter {
	l := &IPRateLimiter{config: limiterConfig{rps: rps, burst: burst}}
	go l.cleanupLoop()
	return l
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	existing, ok := l.ips.Load(ip)
	if !ok {
		fresh := rate.NewLimiter(l.config.rps, l.config.burst)
		l.ips.Store(ip, fresh)
		return fresh
	}
	return existing.(*rate.Limiter)
}

func (l *IPRateLimiter) cleanupLoop() {
	for {
		time.Sleep(10 * time.Minute)
		l.ips.Range(func(key, _ any) bool {
			l.ips.Delete(key)
			return true
		})
	}
}

// Middleware enforces the per-IP rate limit; NewServer mounts it on the
// whole router, so every endpoint is limited, per spec §5's
// abuse-resistance expectations.
func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !l.getLimiter(ip).Allow() {
			slog.Warn("rate_limit_exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
