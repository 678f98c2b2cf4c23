package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/internal/middleware"
	"travel-gateway/pkg/cache"
	"travel-gateway/pkg/config"
	"travel-gateway/pkg/forwarder"
	"travel-gateway/pkg/metrics"
	"travel-gateway/pkg/providers/llm"
	"travel-gateway/pkg/providers/maps"
	"travel-gateway/pkg/providers/weather"
	"travel-gateway/pkg/ratelimit"
)

// Dependencies are the stores and clients the gateway is composed from.
type Dependencies struct {
	Cache     *cache.Cache
	Limiter   *ratelimit.Limiter
	Forwarder *forwarder.Forwarder
	Maps      *maps.Client
	Weather   *weather.Client
	LLM       *llm.Client
}

type GatewayServer struct {
	*BaseServer
	cache     *cache.Cache
	forwarder *forwarder.Forwarder
	maps      *maps.Client
	weather   *weather.Client
	llm       *llm.Client
	rateLimit *middleware.RateLimitMiddleware
}

func NewGatewayServer(config *config.Config, deps Dependencies, logger *logrus.Logger) *GatewayServer {
	s := &GatewayServer{
		BaseServer: NewBaseServer(config, logger),
		cache:      deps.Cache,
		forwarder:  deps.Forwarder,
		maps:       deps.Maps,
		weather:    deps.Weather,
		llm:        deps.LLM,
		rateLimit:  middleware.NewRateLimitMiddleware(deps.Limiter, logger),
	}
	s.setupRoutes()
	return s
}

func (s *GatewayServer) setupRoutes() {
	s.router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(s.logger),
		middleware.Recovery(s.logger, s.config.Server.Development()),
		middleware.NewMetricsMiddleware(s.logger).MetricsMiddleware(),
		middleware.CORS(s.config.CORS.AllowedOrigins),
	)

	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	for _, r := range s.routes() {
		s.register(r)
	}
	for _, r := range s.forwardRoutes() {
		s.registerForward(r)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"ok":    false,
			"code":  "not_found",
			"error": "Route not found",
		})
	})
}

func (s *GatewayServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.runServer(ctx, addr)
}
