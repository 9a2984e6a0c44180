package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/seoblogy/seo-audit/stats"
)

// Visitors records each client IP in the telemetry store.
func Visitors(storage *stats.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		storage.TrackVisitor(c.ClientIP())
		c.Next()
	}
}
