package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/layer-3/sentinel/core"
	"github.com/layer-3/sentinel/internal/shardmap"
	"github.com/layer-3/sentinel/service"
)

const sessionKey = "session"

// AuthMiddleware validates the bearer token and stores the session in the context
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWithError(c, core.ErrUnauthorized)
			return
		}

		session, err := authService.ValidateAccessToken(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP
type IPRateLimiter struct {
	limiters *shardmap.Map[*clientLimiter]
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewIPRateLimiter allows perSecond requests per client IP with the given burst
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: shardmap.New[*clientLimiter](),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	var limiter *rate.Limiter
	l.limiters.Compute(ip, func(cl *clientLimiter, exists bool) (*clientLimiter, bool) {
		if !exists {
			cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		}
		cl.lastSeen = now
		limiter = cl.limiter
		return cl, true
	})
	return limiter.AllowN(now, 1)
}

// Prune drops limiters idle for longer than idle and returns how many were removed
func (l *IPRateLimiter) Prune(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	return l.limiters.DeleteIf(func(_ string, cl *clientLimiter) bool {
		return cl.lastSeen.Before(cutoff)
	})
}

// RateLimitMiddleware rejects clients exceeding their per-IP budget with 429
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: KindRateLimited})
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request. Headers and bodies are never logged.
func LoggerMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelInfo
		}

		log.Log(c.Request.Context(), level, "HTTP request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()))
	}
}
