// Package spamguard throttles writes per client address.
package spamguard

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Guard keeps one token bucket per address. A bucket refills one write
// every interval and holds up to burst writes.
type Guard struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// New returns a guard allowing one write per interval. A non-positive
// interval disables throttling.
func New(interval time.Duration, burst int) *Guard {
	if burst < 1 {
		burst = 1
	}
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	idle := 10 * time.Minute
	if interval*time.Duration(burst) > idle {
		idle = interval * time.Duration(burst)
	}
	return &Guard{
		visitors: make(map[string]*visitor),
		every:    every,
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether addr may write now and consumes a token if so.
func (g *Guard) Allow(addr string) bool {
	if g == nil || g.every == rate.Inf {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	v, ok := g.visitors[addr]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(g.every, g.burst)}
		g.visitors[addr] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Prune forgets addresses that have been idle long enough for their bucket
// to be full again.
func (g *Guard) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := g.now().Add(-g.idle)
	removed := 0
	for addr, v := range g.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(g.visitors, addr)
			removed++
		}
	}
	return removed
}

// Run prunes on every tick until done is closed.
func (g *Guard) Run(done <-chan struct{}, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			g.Prune()
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
