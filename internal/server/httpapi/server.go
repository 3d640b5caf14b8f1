// Package httpapi exposes login and session revocation over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/reelkeeper/internal/logging"
	"github.com/dmitrijs2005/reelkeeper/internal/server/authn"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Authenticator issues a registered access token for valid credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Verifier turns bearer tokens into sessions and ends them.
type Verifier interface {
	Verify(ctx context.Context, token string) (*authn.Session, error)
	Logout(ctx context.Context, s *authn.Session) error
	LogoutAll(ctx context.Context, s *authn.Session) error
}

type Server struct {
	address  string
	logger   logging.Logger
	authn    Authenticator
	verifier Verifier
}

func NewServer(address string, l logging.Logger, a Authenticator, v Verifier) *Server {
	return &Server{
		address:  address,
		logger:   l.With("module", "http_server"),
		authn:    a,
		verifier: v,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthHandler)
	r.POST("/token", s.tokenHandler)

	authGroup := r.Group("")
	authGroup.Use(s.bearerAuth())
	authGroup.GET("/logout", s.logoutHandler)
	authGroup.GET("/logoutall", s.logoutAllHandler)

	return r
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully, letting in-flight requests finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(context.Background(), "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
