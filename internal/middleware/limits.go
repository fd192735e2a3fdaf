package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mediscan-triage-server/internal/domain"
)

// BodyLimit rejects requests whose declared length exceeds maxBytes and caps
// the body reader for the rest. Handlers see *http.MaxBytesError when a
// chunked body runs over.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			AbortWithError(c, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "Request body too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// RateLimiter keeps one token bucket per client key. The least recently seen
// clients are evicted once MaxClients buckets exist.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter from cfg.
func NewRateLimiter(cfg domain.RateLimitConfig) (*RateLimiter, error) {
	clients, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		clients: clients,
	}, nil
}

// Allow reports whether the client identified by key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	limiter, ok := l.clients.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		if existing, found, _ := l.clients.PeekOrAdd(key, limiter); found {
			limiter = existing
		}
	}
	return limiter.Allow()
}

// Len returns the number of tracked clients.
func (l *RateLimiter) Len() int {
	return l.clients.Len()
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by gin's ClientIP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			AbortWithError(c, http.StatusTooManyRequests, ErrCodeRateLimited, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}
