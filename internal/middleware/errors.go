package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"travel-gateway/pkg/types"
)

// AbortWithError writes the failure envelope for err and stops the chain.
// Errors that are not a *types.GatewayError are reported as internal.
func AbortWithError(c *gin.Context, err error) {
	var gwErr *types.GatewayError
	if !errors.As(err, &gwErr) {
		gwErr = types.NewInternal(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(gwErr.StatusCode, gwErr.Body())
}
