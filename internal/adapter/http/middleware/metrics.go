package middleware

import (
	"time"

	"github.com/aq2208/storefront-api/internal/observ"
	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observ.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), float64(time.Since(start).Milliseconds()))
	}
}
