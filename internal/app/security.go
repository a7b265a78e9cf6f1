package app

import (
	"crypto/rand"
	"encoding/base64"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"examscore/internal/app/apiresp"
)

const csrfCookieName = "examscore_csrf"
const csrfHeaderName = "X-CSRF-Token"

type rateBucket struct {
	Count      int
	WindowEnds time.Time
}

// IPRateLimiter is a fixed-window counter per key.
type IPRateLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	store     map[string]rateBucket
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(max int, window time.Duration) *IPRateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		max:    max,
		window: window,
		store:  make(map[string]rateBucket),
		now:    time.Now,
	}
}

func (l *IPRateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b := l.store[key]
	if now.After(b.WindowEnds) {
		b = rateBucket{Count: 0, WindowEnds: now.Add(l.window)}
	}
	if b.Count >= l.max {
		l.store[key] = b
		return false
	}
	b.Count++
	l.store[key] = b
	return true
}

// sweep drops expired buckets at most once per window. Callers hold l.mu.
func (l *IPRateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for k, b := range l.store {
		if now.After(b.WindowEnds) {
			delete(l.store, k)
		}
	}
	l.lastSweep = now
}

func (l *IPRateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.store)
}

func RateLimitMiddleware(l *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientHost(r.RemoteAddr) + "|" + r.Method + "|" + r.URL.Path
			if !l.Allow(key) {
				apiresp.WriteError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientHost strips the port so every connection from one address shares a bucket.
func clientHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// CSRFMiddleware enforces the double-submit pattern on unsafe methods and
// hands out the cookie on safe ones so browser clients can echo it back.
func CSRFMiddleware(enforced, secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enforced {
				next.ServeHTTP(w, r)
				return
			}
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if c, err := r.Cookie(csrfCookieName); err != nil || strings.TrimSpace(c.Value) == "" {
					if token, err := newCSRFToken(); err == nil {
						http.SetCookie(w, &http.Cookie{
							Name:     csrfCookieName,
							Value:    token,
							Path:     "/",
							Secure:   secureCookie,
							SameSite: http.SameSiteLaxMode,
						})
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			c, err := r.Cookie(csrfCookieName)
			if err != nil || strings.TrimSpace(c.Value) == "" {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token missing")
				return
			}
			h := strings.TrimSpace(r.Header.Get(csrfHeaderName))
			if h == "" || h != c.Value {
				apiresp.WriteError(w, r, http.StatusForbidden, "csrf token invalid")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newCSRFToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
