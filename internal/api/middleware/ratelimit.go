package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-drug-registry/internal/api/shared/errors"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/ratelimit"
)

const RETRY_AFTER_SECONDS = "1"

// RateLimit rejects requests from a client IP whose bucket is empty with 429.
// Paths in skip (e.g. health checks) are never limited.
func RateLimit(limiter ratelimit.Limiter, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.WarnCtx(c.Request.Context(), "Rate limit exceeded",
				zap.String("client_ip", ip),
				zap.String("path", c.Request.URL.Path))
			c.Header("Retry-After", RETRY_AFTER_SECONDS)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierrors.ErrorResponse{
				Error: apierrors.NewTooManyRequestsError("Too many requests"),
			})
			return
		}

		c.Next()
	}
}
