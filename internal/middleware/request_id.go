package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"travel-gateway/pkg/common"
)

const maxRequestIDLength = 128

// RequestID reuses the caller's X-Request-ID or generates one, and echoes it
// on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Set(RequestIDContextKey, id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// GetRequestID returns the correlation id of the current request.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}
