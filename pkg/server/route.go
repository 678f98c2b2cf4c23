package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/internal/middleware"
	"travel-gateway/pkg/forwarder"
	"travel-gateway/pkg/signature"
	"travel-gateway/pkg/validation"
)

const jsonContentType = "application/json; charset=utf-8"

// Source is where a route reads its payload from.
type Source int

const (
	SourceBody Source = iota
	SourceQuery
)

// Request is what a handler sees: the validated, normalised payload.
type Request struct {
	Payload   map[string]interface{}
	RequestID string
	ClientIP  string
}

// Handler produces the success envelope for a request.
type Handler func(ctx context.Context, req *Request) (interface{}, error)

// Route is a gateway endpoint served by a local handler. A positive CacheTTL
// makes it cacheable.
type Route struct {
	Name     string
	Method   string
	Path     string
	Tier     string
	CacheTTL time.Duration
	Pipeline *validation.Pipeline
	Source   Source
	Handler  Handler
}

// ForwardRoute is a gateway endpoint relayed to a downstream. It is never
// cached.
type ForwardRoute struct {
	Name     string
	Method   string
	Path     string
	Tier     string
	Pipeline *validation.Pipeline
	Spec     forwarder.Spec
}

func (s *GatewayServer) register(r Route) {
	s.router.Handle(r.Method, r.Path, s.rateLimit.Tier(r.Tier), s.serve(r))
}

func (s *GatewayServer) registerForward(r ForwardRoute) {
	s.router.Handle(r.Method, r.Path, s.rateLimit.Tier(r.Tier), s.forward(r))
}

// serve composes payload decoding, normalisation, cache lookup, validation,
// the handler and the cache write.
func (s *GatewayServer) serve(r Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.RouteContextKey, r.Name)
		ctx := c.Request.Context()

		payload, err := s.payload(c, r.Source)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		r.Pipeline.Apply(payload)

		var key string
		if r.CacheTTL > 0 {
			key, err = s.signature(c, r.Source, payload)
			if err != nil {
				middleware.AbortWithError(c, err)
				return
			}
			if cached, ok := s.cache.Get(ctx, key); ok {
				c.Set(middleware.CacheContextKey, "HIT")
				c.Header(middleware.CacheHeader, "HIT")
				c.Data(http.StatusOK, jsonContentType, cached)
				return
			}
		}

		if err := r.Pipeline.Validate(payload); err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		result, err := r.Handler(ctx, &Request{
			Payload:   payload,
			RequestID: middleware.GetRequestID(c),
			ClientIP:  c.ClientIP(),
		})
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		body, err := fastJSONMarshal(result)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		if r.CacheTTL > 0 {
			c.Set(middleware.CacheContextKey, "MISS")
			c.Header(middleware.CacheHeader, "MISS")
			if !s.cache.Set(ctx, key, body, r.CacheTTL) {
				s.logger.WithFields(logrus.Fields{
					"route":      r.Name,
					"request_id": middleware.GetRequestID(c),
				}).Debug("Response not cached")
			}
		}
		c.Data(http.StatusOK, jsonContentType, body)
	}
}

func (s *GatewayServer) payload(c *gin.Context, source Source) (map[string]interface{}, error) {
	if source == SourceQuery {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		return validation.FromQuery(c.Request.URL.Query(), params), nil
	}
	body, err := readBody(c)
	if err != nil {
		return nil, err
	}
	return decodeObject(body)
}

// signature keys the cache on the normalised payload, so requests that
// differ only in coordinate noise share an entry.
func (s *GatewayServer) signature(c *gin.Context, source Source, payload map[string]interface{}) (string, error) {
	body, err := fastJSONMarshal(payload)
	if err != nil {
		return "", err
	}
	query := c.Request.URL.Query()
	if source == SourceQuery {
		query = nil
	}
	return signature.Build(c.Request.Method, c.Request.URL.Path, query, body), nil
}

// forward validates when the route has a pipeline, then relays the raw body.
func (s *GatewayServer) forward(r ForwardRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.RouteContextKey, r.Name)

		body, err := readBody(c)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		if r.Pipeline != nil {
			payload, err := decodeObject(body)
			if err != nil {
				middleware.AbortWithError(c, err)
				return
			}
			if err := r.Pipeline.Validate(payload); err != nil {
				middleware.AbortWithError(c, err)
				return
			}
		}

		requestID := middleware.GetRequestID(c)
		resp, err := s.forwarder.Forward(c.Request.Context(), r.Spec, forwarder.InboundFromGin(c, body, requestID))
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}
		resp.WriteTo(c)
	}
}
