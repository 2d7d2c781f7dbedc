package middleware

import (
	"net/http"

	"fuel-station-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DefaultMaxRequestSize bounds provisioning request bodies.
const DefaultMaxRequestSize = 1 << 20

// RequestSizeLimitMiddleware rejects bodies larger than maxSize bytes.
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}

	return func(c *gin.Context) {
		// Declared length is checked up front
		if c.Request.ContentLength > maxSize {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}

		// Chunked bodies are cut off while reading
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
