package types

import (
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure.
type Kind string

const (
	ConfigurationMissing Kind = "configuration_missing"
	ValidationFailed     Kind = "validation_failed"
	RateLimited          Kind = "rate_limited"
	UpstreamUnavailable  Kind = "upstream_unavailable"
	UpstreamRejected     Kind = "upstream_rejected"
	InternalUnexpected   Kind = "internal_unexpected"
)

// FieldError describes a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// GatewayError is the error every externally visible failure is reported as.
// It is terminal for the request: nothing in the gateway retries it.
type GatewayError struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Detail     string
	Fields     []FieldError
	Limit      int
	Tier       string
	RetryAfter int
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Body renders the failure envelope sent to the caller.
func (e *GatewayError) Body() map[string]interface{} {
	body := map[string]interface{}{
		"ok":    false,
		"code":  e.Code,
		"error": e.Message,
	}
	if e.Detail != "" {
		body["message"] = e.Detail
	}
	if len(e.Fields) > 0 {
		body["details"] = e.Fields
	}
	if e.Kind == RateLimited {
		body["limit"] = e.Limit
		body["tier"] = e.Tier
		body["retryAfter"] = e.RetryAfter
	}
	return body
}

func NewConfigurationMissing(status int, code, message string) *GatewayError {
	return &GatewayError{Kind: ConfigurationMissing, StatusCode: status, Code: code, Message: message}
}

func NewValidationFailed(fields []FieldError) *GatewayError {
	return &GatewayError{
		Kind:       ValidationFailed,
		StatusCode: http.StatusBadRequest,
		Code:       "validation_failed",
		Message:    "Validation failed",
		Fields:     fields,
	}
}

// NewGuardrail reports a semantic check failure with its own code.
func NewGuardrail(code, message string) *GatewayError {
	return &GatewayError{
		Kind:       ValidationFailed,
		StatusCode: http.StatusBadRequest,
		Code:       code,
		Message:    message,
	}
}

func NewRateLimited(tier string, limit, retryAfter int, message string) *GatewayError {
	return &GatewayError{
		Kind:       RateLimited,
		StatusCode: http.StatusTooManyRequests,
		Code:       "rate_limited",
		Message:    message,
		Limit:      limit,
		Tier:       tier,
		RetryAfter: retryAfter,
	}
}

func NewUpstreamUnavailable(code string, err error) *GatewayError {
	return &GatewayError{
		Kind:       UpstreamUnavailable,
		StatusCode: http.StatusBadGateway,
		Code:       code,
		Message:    "Upstream service unavailable",
		Err:        err,
	}
}

func NewUpstreamRejected(status int, code, message, detail string) *GatewayError {
	return &GatewayError{
		Kind:       UpstreamRejected,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Detail:     detail,
	}
}

func NewInternal(err error) *GatewayError {
	return &GatewayError{
		Kind:       InternalUnexpected,
		StatusCode: http.StatusInternalServerError,
		Code:       "internal_error",
		Message:    "Internal server error",
		Err:        err,
	}
}
