// Package server exposes the services over JSON/HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"wingman/auth"
	"wingman/config"
	"wingman/observability"
	"wingman/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// TokenVerifier checks an identity token
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// RateLimiter admits or rejects a request for a key
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Deps are the collaborators the handlers need. Verifier, Limiter and Metrics may be nil.
type Deps struct {
	Config        *config.Config
	Users         service.UserService
	Friends       service.FriendService
	Matches       service.MatchService
	Markets       service.MarketService
	Vouches       service.VouchService
	Notifications service.NotificationService
	Verifier      TokenVerifier
	Limiter       RateLimiter
	Metrics       *observability.MetricsProvider
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(deps Deps) *gin.Engine {
	if deps.Config.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(deps.Metrics))
	engine.Use(cors(deps.Config.CORSAllowedOrigins))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/")
	api.Use(authenticate(deps.Verifier, deps.Users))
	if deps.Limiter != nil {
		api.Use(rateLimit(deps.Limiter, deps.Config.RateLimitPerMinute))
	}

	(&userHandler{users: deps.Users}).register(api)
	(&friendHandler{friends: deps.Friends}).register(api)
	(&matchHandler{matches: deps.Matches}).register(api)
	(&marketHandler{markets: deps.Markets}).register(api)
	(&vouchHandler{vouches: deps.Vouches}).register(api)
	(&notificationHandler{notifications: deps.Notifications}).register(api)

	return engine
}

// Server wraps http.Server around the router
type Server struct {
	httpServer *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
