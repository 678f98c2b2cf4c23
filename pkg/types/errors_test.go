package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayErrorBody(t *testing.T) {
	t.Run("validation failure lists every field", func(t *testing.T) {
		err := NewValidationFailed([]FieldError{
			{Field: "lat", Message: "is required"},
			{Field: "lng", Message: "is required"},
		})
		body := err.Body()
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "validation_failed", body["code"])
		assert.Len(t, body["details"], 2)
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	})

	t.Run("rate limit carries limit and tier", func(t *testing.T) {
		err := NewRateLimited("ai", 10, 42, "Too many AI requests")
		body := err.Body()
		assert.Equal(t, 10, body["limit"])
		assert.Equal(t, "ai", body["tier"])
		assert.Equal(t, 42, body["retryAfter"])
		assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
	})

	t.Run("upstream error text is not in the body", func(t *testing.T) {
		err := NewUpstreamUnavailable("backend_error", errors.New("dial tcp 10.0.0.1:80: connection refused"))
		body := err.Body()
		assert.NotContains(t, fmt.Sprint(body), "connection refused")
		assert.Equal(t, http.StatusBadGateway, err.StatusCode)
	})
}

func TestGatewayErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	var err error = fmt.Errorf("handler: %w", NewInternal(cause))

	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, InternalUnexpected, gwErr.Kind)
	assert.ErrorIs(t, err, cause)
}
