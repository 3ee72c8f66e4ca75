// Package gateway is the HTTP front of the chat service. It authenticates
// callers, decides server-side which system prompt a request may use and
// relays the provider's event stream back to the client.
package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jonztech/jz-cli/internal/auth"
	"github.com/jonztech/jz-cli/internal/config"
	"github.com/jonztech/jz-cli/internal/logger"
)

const logModule = "gateway"

// Server wires the gateway routes.
type Server struct {
	cfg      *config.Gateway
	log      logger.Logger
	verifier *auth.Verifier
	limiter  *limiter
	upstream *upstream
	validate *validator.Validate
	engine   *gin.Engine
}

// New builds the gateway for cfg.
func New(cfg *config.Gateway, log logger.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		verifier: auth.NewVerifier(cfg.JWTSecret),
		limiter:  newLimiter(cfg.RatePerMinute),
		upstream: newUpstream(cfg.UpstreamURL, cfg.APIKey, cfg.Model, cfg.UpstreamTimeout),
		validate: validator.New(),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog, cors)
	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1")
	v1.POST("/chat", s.authenticate, s.rateLimit, s.handleChat)
	if cfg.AllowDevTokens {
		v1.POST("/token", s.handleToken)
	}
	s.engine = r
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then drains in-flight streams.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(logModule, "listening", map[string]interface{}{"addr": s.cfg.Addr, "upstream": s.cfg.UpstreamURL})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.log.Info(logModule, "shutting down", nil)
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Info(logModule, "request", map[string]interface{}{
		"method":   c.Request.Method,
		"path":     c.FullPath(),
		"status":   c.Writer.Status(),
		"duration": time.Since(start).String(),
		"ip":       c.ClientIP(),
	})
}

func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
