package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/types"
)

// Recovery turns a panic into a 500 envelope. The panic value and stack are
// only returned to the caller in development.
func Recovery(logger *logrus.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := string(debug.Stack())
			logger.WithFields(logrus.Fields{
				"panic":      fmt.Sprint(rec),
				"path":       c.Request.URL.Path,
				"request_id": GetRequestID(c),
				"stack":      stack,
			}).Error("Recovered from panic")

			gwErr := types.NewInternal(fmt.Errorf("panic: %v", rec))
			body := gwErr.Body()
			if development {
				body["message"] = fmt.Sprint(rec)
				body["stack"] = stack
			}
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
