package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate is a request budget per client over a period
type Rate struct {
	Count  int
	Period time.Duration
	Unit   string
}

var rateUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
}

// ParseRate parses "10/minute" (also "10 per minute" and plural units)
func ParseRate(s string) (Rate, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	raw = strings.Replace(raw, " per ", "/", 1)
	count, unit, ok := strings.Cut(raw, "/")
	if !ok {
		return Rate{}, fmt.Errorf("invalid rate limit %q (want e.g. 10/minute)", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("invalid rate limit count in %q", s)
	}
	unit = strings.TrimSuffix(strings.TrimSpace(unit), "s")
	period, ok := rateUnits[unit]
	if !ok {
		return Rate{}, fmt.Errorf("invalid rate limit unit in %q (use second, minute, hour or day)", s)
	}
	return Rate{Count: n, Period: period, Unit: unit}, nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%d per 1 %s", r.Count, r.Unit)
}

// Limiter tracks a token bucket per client key. Buckets refill at
// Count/Period and allow a burst of Count. A bucket untouched for a full
// Period has refilled completely, so it is dropped on the next sweep.
type Limiter struct {
	mu        sync.Mutex
	rate      Rate
	clients   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewLimiter(r Rate) *Limiter {
	l := &Limiter{rate: r, clients: make(map[string]*bucket), now: time.Now}
	l.lastSweep = l.now()
	return l
}

// Allow reports whether key may make another request now
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.rate.Period {
		l.sweep(now)
	}
	b, ok := l.clients[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(l.rate.Period/time.Duration(l.rate.Count)), l.rate.Count)}
		l.clients[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// sweep drops idle buckets; l.mu must be held
func (l *Limiter) sweep(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) >= l.rate.Period {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !s.limiter.Allow(key) {
			s.logger.Warn("rate limit exceeded", "client", key)
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.rate.Period.Seconds())))
			httpError(w, http.StatusTooManyRequests, "Rate limit exceeded: %s", s.limiter.rate)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which RealIP has already
// resolved from proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
