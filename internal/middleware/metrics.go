package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopkosh/coin_wallet_service/internal/platform/metrics"
)

// OperationMetrics records the latency of one wallet operation route.
func OperationMetrics(operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveDuration(operation, time.Since(start).Seconds())
	}
}
