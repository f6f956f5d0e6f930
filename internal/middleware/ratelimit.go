package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/handler"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter counts attempts per key in a fixed window that starts with the
// first attempt.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// Call Stop to end it.
func NewRateLimiter(maxAttempts int, window time.Duration, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
		stopCh:      make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow counts an attempt for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry := rl.current(key)
	if entry.count >= rl.maxAttempts {
		return false
	}
	entry.count++
	return true
}

// Blocked reports whether key has used up its attempts, without counting one.
func (rl *RateLimiter) Blocked(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok || rl.now().Sub(entry.windowStart) > rl.window {
		return false
	}
	return entry.count >= rl.maxAttempts
}

// RecordFailure counts an attempt without checking the limit.
func (rl *RateLimiter) RecordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.current(key).count++
}

// Reset clears the count for key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long until the window for key ends.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[key]
	if !exists {
		return 0
	}

	elapsed := rl.now().Sub(entry.windowStart)
	if elapsed >= rl.window {
		return 0
	}
	return rl.window - elapsed
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// current returns the live entry for key, starting a new window when the
// previous one expired. Caller holds mu.
func (rl *RateLimiter) current(key string) *rateLimitEntry {
	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) > rl.window {
		entry = &rateLimitEntry{windowStart: now}
		rl.entries[key] = entry
	}
	return entry
}

// cleanup periodically removes expired entries.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) > rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// RateLimitMiddleware counts every request against the client address.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new rate limit middleware.
func NewRateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Limit returns middleware that rate limits requests.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)
		if !m.limiter.Allow(clientIP) {
			tooManyRequests(w, r, m.limiter, clientIP, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request, limiter *RateLimiter, key string, logger *slog.Logger) {
	logger.Warn("rate limit exceeded",
		"ip", key,
		"path", r.URL.Path,
		"method", r.Method,
	)

	retryAfter := int(limiter.TimeUntilReset(key).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	handler.WriteJSONError(w, http.StatusTooManyRequests, domain.ERATELIMIT, domain.ErrorMessage(domain.RateLimit("")))
}

// =============================================================================
// Auth Rate Limiter
// =============================================================================

// AuthRateLimiter limits the credential endpoints.
//
// Login counts only failed attempts: a 401 from the login handler is a
// failure and a 2xx clears the count. Registration counts every request.
type AuthRateLimiter struct {
	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	logger          *slog.Logger
}

// AuthRateLimits configures NewAuthRateLimiter. Zero fields take defaults:
// 5 failed logins per 15 minutes and 10 registrations per hour.
type AuthRateLimits struct {
	LoginAttempts    int
	LoginWindow      time.Duration
	RegisterAttempts int
	RegisterWindow   time.Duration
}

// NewAuthRateLimiter creates the login and registration limiters.
func NewAuthRateLimiter(limits AuthRateLimits, logger *slog.Logger) *AuthRateLimiter {
	if limits.LoginAttempts <= 0 {
		limits.LoginAttempts = 5
	}
	if limits.LoginWindow <= 0 {
		limits.LoginWindow = 15 * time.Minute
	}
	if limits.RegisterAttempts <= 0 {
		limits.RegisterAttempts = 10
	}
	if limits.RegisterWindow <= 0 {
		limits.RegisterWindow = time.Hour
	}
	return &AuthRateLimiter{
		loginLimiter:    NewRateLimiter(limits.LoginAttempts, limits.LoginWindow, logger),
		registerLimiter: NewRateLimiter(limits.RegisterAttempts, limits.RegisterWindow, logger),
		logger:          logger,
	}
}

// LimitLogin rejects clients with too many recent failed logins and records
// the outcome of every attempt it lets through.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := getClientIP(r)
		if a.loginLimiter.Blocked(clientIP) {
			tooManyRequests(w, r, a.loginLimiter, clientIP, a.logger)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		switch {
		case wrapped.statusCode == http.StatusUnauthorized:
			a.RecordFailedLogin(clientIP)
		case wrapped.statusCode < 300:
			a.ResetLogin(clientIP)
		}
	})
}

// LimitRegister returns middleware for rate limiting registration attempts.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return NewRateLimitMiddleware(a.registerLimiter, a.logger).Limit(next)
}

// RecordFailedLogin counts a failed login for ip.
func (a *AuthRateLimiter) RecordFailedLogin(ip string) {
	a.loginLimiter.RecordFailure(ip)
}

// ResetLogin clears the failed login count for ip.
func (a *AuthRateLimiter) ResetLogin(ip string) {
	a.loginLimiter.Reset(ip)
}

// Stop ends the cleanup goroutines.
func (a *AuthRateLimiter) Stop() {
	a.loginLimiter.Stop()
	a.registerLimiter.Stop()
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
