package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/metrics"
	"orderdesk-be/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client and tier. Writes
// (POST/PUT/PATCH/DELETE) draw from a bucket half the size of reads.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	readLimit  rate.Limit
	readBurst  int
	writeLimit rate.Limit
	writeBurst int

	now func() time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	writeBurst := burst / 2
	if writeBurst < 1 {
		writeBurst = 1
	}
	return &RateLimiter{
		visitors:   make(map[string]*visitor),
		readLimit:  rate.Limit(rps),
		readBurst:  burst,
		writeLimit: rate.Limit(rps / 2),
		writeBurst: writeBurst,
		now:        time.Now,
	}
}

func (rl *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter: limiter, lastSeen: rl.now()}
		return limiter
	}

	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops visitors idle for longer than the TTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until stop is closed.
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := rl.resolveTier(r)

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		key := "ip:" + ip + ":" + tier

		if !rl.getVisitor(key, limit, burst).Allow() {
			metrics.RateLimitedClient.Inc()
			logger.FromCtx(r.Context()).Warn("rate limit exceeded",
				zap.String("client", ip),
				zap.String("tier", tier),
			)
			utils.WriteJSONError(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) resolveTier(r *http.Request) (rate.Limit, int, string) {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return rl.writeLimit, rl.writeBurst, "write"
	default:
		return rl.readLimit, rl.readBurst, "read"
	}
}
