package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/ratelimit"
	"travel-gateway/pkg/types"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// Tier charges every request against the named tier, keyed by client IP.
func (m *RateLimitMiddleware) Tier(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		decision := m.limiter.Allow(c.Request.Context(), name, client)
		if decision.Bypassed {
			c.Next()
			return
		}

		now := m.limiter.Now()
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.ResetAt.IsZero() {
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		}

		if !decision.Allowed {
			retryAfter := decision.RetryAfter(now)
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			tier, _ := m.limiter.Tier(name)
			m.logger.WithFields(logrus.Fields{
				"tier":       name,
				"client_ip":  client,
				"limit":      decision.Limit,
				"request_id": GetRequestID(c),
			}).Warn("Rate limit exceeded")

			AbortWithError(c, types.NewRateLimited(name, decision.Limit, retryAfter, tier.Message))
			return
		}
		c.Next()
	}
}
