package api

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestBodyLimitBytes caps request payload size to prevent memory exhaustion.
	DefaultRequestBodyLimitBytes int64 = 10 << 20 // 10 MiB

	// DefaultRateLimit is the sustained request rate per client IP, per second.
	DefaultRateLimit = 5.0

	// DefaultRateBurst is the number of requests a client may make at once.
	DefaultRateBurst = 20

	// limiterIdleTTL is how long an idle client keeps its bucket.
	limiterIdleTTL = 10 * time.Minute
)

const (
	securityHeaderNoSniff = "nosniff"
	securityHeaderNoFrame = "DENY"
	securityHeaderHSTS    = "max-age=63072000; includeSubDomains"
	securityHeaderCSP     = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

	// reportCSP allows the inline stylesheet of the printable report.
	reportCSP = "default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	now     func() time.Time
	clients map[string]*clientBucket
}

func newIPRateLimiter(perSecond float64, burst int, now func() time.Time) *ipRateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRateLimit
	}
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	if now == nil {
		now = time.Now
	}

	return &ipRateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     now,
		clients: make(map[string]*clientBucket),
	}
}

func (l *ipRateLimiter) allow(clientIP string) bool {
	now := l.now()
	if clientIP == "" {
		clientIP = "unknown"
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Drop idle clients to keep memory bounded.
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) >= limiterIdleTTL {
			delete(l.clients, ip)
		}
	}

	c, ok := l.clients[clientIP]
	if !ok {
		c = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientIP] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// retryAfter is the time until one token is back, rounded up to seconds.
func (l *ipRateLimiter) retryAfter() int {
	seconds := int(math.Ceil(1 / float64(l.limit)))
	if seconds <= 0 {
		seconds = 1
	}
	return seconds
}

// SecurityHeaders ensures API responses include baseline browser hardening headers.
func SecurityHeaders(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", securityHeaderNoSniff)
		w.Header().Set("X-Frame-Options", securityHeaderNoFrame)
		w.Header().Set("Strict-Transport-Security", securityHeaderHSTS)
		w.Header().Set("Content-Security-Policy", securityHeaderCSP)
		next.ServeHTTP(w, r)
	})
}

// BodySizeLimit caps request body size before handler processing.
func BodySizeLimit(limitBytes int64) func(http.Handler) http.Handler {
	if limitBytes <= 0 {
		limitBytes = DefaultRequestBodyLimitBytes
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitPerIP throttles requests by client IP with a token bucket.
func RateLimitPerIP(perSecond float64, burst int) func(http.Handler) http.Handler {
	return rateLimitPerIPWithClock(perSecond, burst, time.Now)
}

func rateLimitPerIPWithClock(perSecond float64, burst int, now func() time.Time) func(http.Handler) http.Handler {
	limiter := newIPRateLimiter(perSecond, burst, now)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.allow(clientIPFromRequest(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", strconv.Itoa(limiter.retryAfter()))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
				"client", clientIPFromRequest(r),
			)
		})
	}
}

func clientIPFromRequest(r *http.Request) string {
	forwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwardedFor != "" {
		parts := strings.Split(forwardedFor, ",")
		if len(parts) > 0 {
			clientIP := strings.TrimSpace(parts[0])
			if clientIP != "" {
				return clientIP
			}
		}
	}

	remoteAddr := strings.TrimSpace(r.RemoteAddr)
	if remoteAddr == "" {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil && host != "" {
		return host
	}

	return remoteAddr
}
