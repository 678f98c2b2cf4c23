package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// Server interface defines the common behavior for all servers
type Server interface {
	Run(ctx context.Context) error
}

type BaseServer struct {
	config  *config.Config
	logger  *logrus.Logger
	router  *gin.Engine
	started time.Time
}

func init() {
	// Set Gin mode to release by default
	gin.SetMode(gin.ReleaseMode)
	// Disable Gin's default logging globally
	gin.DefaultWriter = io.Discard
}

func NewBaseServer(config *config.Config, logger *logrus.Logger) *BaseServer {
	router := gin.New()
	// Client identity for rate limiting is the connection address
	_ = router.SetTrustedProxies(nil)

	return &BaseServer{
		config:  config,
		logger:  logger,
		router:  router,
		started: time.Now(),
	}
}

func (s *BaseServer) Router() *gin.Engine {
	return s.router
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func (s *BaseServer) runServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down gateway")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
