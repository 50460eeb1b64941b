package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiters hands out one token bucket per client IP and forgets idle
// clients after an hour.
type clientLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(perSecond float64, burst int) *clientLimiters {
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	cl := &clientLimiters{
		clients: make(map[string]*clientEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		done:    make(chan struct{}),
	}
	go cl.sweep()
	return cl
}

// stop ends the background sweeper; safe to call more than once.
func (cl *clientLimiters) stop() {
	cl.stopOnce.Do(func() { close(cl.done) })
}

func (cl *clientLimiters) allow(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	cl.mu.Lock()
	entry, ok := cl.clients[host]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[host] = entry
	}
	entry.lastSeen = time.Now()
	cl.mu.Unlock()

	return entry.limiter.Allow()
}

func (cl *clientLimiters) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-time.Hour)
		cl.mu.Lock()
		for host, entry := range cl.clients {
			if entry.lastSeen.Before(cutoff) {
				delete(cl.clients, host)
			}
		}
		cl.mu.Unlock()
	}
}

// middleware rejects clients that exceed their budget. Overloaded clients
// get 503 so operators' dashboards back off rather than retry hot.
func (cl *clientLimiters) middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(r.RemoteAddr) {
				writeError(w, http.StatusServiceUnavailable, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
