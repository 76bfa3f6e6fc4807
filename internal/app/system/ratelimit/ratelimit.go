// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts attempts per key in fixed windows. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count     int
	expiresAt time.Time
}

// New allows limit attempts per key per period.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = window{count: 1, expiresAt: now.Add(l.period)}
		l.sweep(now)
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	l.windows[key] = w
	return true
}

// Reset forgets the attempts recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}

// sweep drops expired windows once the map grows. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, k)
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP, or the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter throttles sign-in attempts per client IP and per email.
type LoginLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per email
// per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{ip: New(10, time.Minute), email: New(5, 5*time.Minute)}
}

// Check records an attempt. When refused, reason is a user-facing message.
func (ll *LoginLimiter) Check(r *http.Request, email string) (ok bool, reason string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, "Too many login attempts. Please wait a minute before trying again."
	}
	if email != "" && !ll.email.Allow(strings.ToLower(email)) {
		return false, "Too many login attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// ResetEmail clears the per-email counter after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.email.Reset(strings.ToLower(email))
	}
}
