package middleware

// Common context keys
const (
	RequestIDContextKey = "request_id"
	RouteContextKey     = "route_id"
	CacheContextKey     = "cache_status"

	RequestIDHeader = "X-Request-ID"
	CacheHeader     = "X-Cache"
)
