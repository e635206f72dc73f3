package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"farmconnect/internal/infrastructure/metrics"
	"farmconnect/internal/infrastructure/ratelimit"
	"farmconnect/pkg/errors"
	"farmconnect/pkg/logger"
	"farmconnect/pkg/response"
)

// RateLimit throttles a REST route per authenticated user. It shares buckets
// with the socket, so a user cannot dodge the send_message limit by switching
// transports. Must run after Authenticate.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(ContextUserID).(string)
			if userID == "" {
				// unauthenticated routes fall back to the client address
				userID = "ip:" + c.RealIP()
			}

			if allowed, wait := limiter.Allow(userID, action); !allowed {
				metrics.InboundEvents.WithLabelValues(action, errors.CodeTooManyRequests).Inc()
				logger.Warn("RATE LIMIT: %s blocked on %s (reset in %v)", userID, action, wait)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded, retry in "+wait.Round(time.Millisecond).String()))
			}
			return next(c)
		}
	}
}
