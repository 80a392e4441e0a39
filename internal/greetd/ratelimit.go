package greetd

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiterTTL is how long an idle client entry is kept before the
// cleanup pass drops it.
const clientLimiterTTL = 10 * time.Minute

// clientEntry pairs a limiter with its last access time.
type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter limits request rates, either globally or per client.
type RateLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	clients   map[string]*clientEntry
	perClient bool
	rps       int
	burst     int

	stopCh  chan struct{}
	stopped bool
}

// NewRateLimiter creates a limiter from the rate limit configuration and
// starts its idle-client cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		global:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		clients:   make(map[string]*clientEntry),
		perClient: cfg.PerClient,
		rps:       cfg.RPS,
		burst:     cfg.Burst,
		stopCh:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	if !rl.perClient {
		return rl.global.Allow()
	}

	rl.mu.Lock()
	entry, ok := rl.clients[client]
	if !ok {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		}
		rl.clients[client] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Update applies a new rate and burst, also adjusting existing client
// limiters so a config reload takes effect immediately.
func (rl *RateLimiter) Update(rps, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.rps = rps
	rl.burst = burst
	rl.global.SetLimit(rate.Limit(rps))
	rl.global.SetBurst(burst)
	for _, entry := range rl.clients {
		entry.limiter.SetLimit(rate.Limit(rps))
		entry.limiter.SetBurst(burst)
	}
}

// Stop halts the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.stopped {
		rl.stopped = true
		close(rl.stopCh)
	}
}

// cleanupLoop drops idle client entries periodically.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes entries not seen within the TTL.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-clientLimiterTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for client, entry := range rl.clients {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// clientIP extracts the caller address for per-client limiting, trusting
// the first X-Forwarded-For entry when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
