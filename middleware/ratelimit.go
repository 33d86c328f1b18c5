package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// AttemptStore tracks request timestamps per key over a sliding window. Used
// to throttle the auth endpoints, which are the only ones worth brute forcing.
type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	limit    int
	window   time.Duration
	maxKeys  int
	now      func() time.Time
}

func NewAttemptStore(limit int, window time.Duration) *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		maxKeys:  10_000,
		now:      time.Now,
	}
}

// Allow records an attempt for the key and reports whether it is still within
// the limit.
func (s *AttemptStore) Allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-s.window)

	recent := s.attempts[key][:0]
	for _, t := range s.attempts[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= s.limit {
		s.attempts[key] = recent
		return false
	}

	// Bound memory under a flood of distinct keys. Dropping stale entries
	// first keeps active offenders throttled.
	if len(s.attempts) >= s.maxKeys {
		for k, times := range s.attempts {
			if len(times) == 0 || !times[len(times)-1].After(cutoff) {
				delete(s.attempts, k)
			}
		}
	}

	s.attempts[key] = append(recent, now)
	return true
}

// RateLimit throttles by client IP using the given store.
func RateLimit(store *AttemptStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !store.Allow(ip) {
				writeAuthError(w, http.StatusTooManyRequests, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
