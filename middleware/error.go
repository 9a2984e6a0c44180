// Package middleware holds the gin middleware shared by the audit
// service: panic recovery, per-IP rate limiting, CORS, and visitor
// tracking.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a handler panic into a 500 response instead of killing
// the connection. The stack goes to the log, not the client.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "an unexpected error occurred",
				})
			}
		}()

		c.Next()
	}
}
