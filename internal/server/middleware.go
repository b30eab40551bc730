package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bookcatalog/internal/response"
)

// recoverer turns a panic in any handler into a logged, generic 500
func recoverer(rr *response.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}

				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				rr.RespondAndLogError(w, r.Context(), fmt.Errorf("panic: %v", rvr))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

var errRateLimited = errors.New("rate limit exceeded")

const (
	clientIdleTimeout = 3 * time.Minute
	sweepInterval     = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit gives every client IP its own token bucket. Buckets idle for
// longer than clientIdleTimeout are dropped on the next sweep.
func rateLimit(limit rate.Limit, burst int, rr *response.Responder) func(http.Handler) http.Handler {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	allow := func(ip string, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()

		if now.Sub(lastSweep) > sweepInterval {
			for key, c := range clients {
				if now.Sub(c.lastSeen) > clientIdleTimeout {
					delete(clients, key)
				}
			}
			lastSweep = now
		}

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = c
		}
		c.lastSeen = now

		return c.limiter.AllowN(now, 1)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(clientIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				rr.RespondAndLogCustom(w, r.Context(), errRateLimited, slog.LevelWarn,
					http.StatusTooManyRequests, response.KindRateLimited, "Rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RemoteAddr is a bare IP once middleware.RealIP found a forwarding header
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
