package gateway

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonztech/jz-cli/internal/auth"
)

const (
	msgRateLimited   = "Rate limit exceeded. Please try again in a moment."
	msgQuota         = "Usage limit reached. Please add credits to continue."
	msgUnavailable   = "AI service temporarily unavailable"
	msgDeveloperOnly = "Developer mode requires developer access."
	msgInvalidToken  = "Invalid or expired token"

	identityKey = "identity"
	relayBuffer = 4 * 1024
	devTokenTTL = time.Hour
)

type chatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=200000"`
	Image   string `json:"image" validate:"omitempty,max=15000000"`
}

type chatRequest struct {
	Messages        []chatMessage `json:"messages" validate:"required,min=1,max=200,dive"`
	CustomKnowledge []string      `json:"customKnowledge" validate:"max=100,dive,max=10000"`
	DeveloperMode   bool          `json:"developerMode"`
}

type tokenRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	Email  string   `json:"email" validate:"omitempty,email"`
	Roles  []string `json:"roles" validate:"dive,oneof=developer"`
}

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// authenticate resolves the bearer into an identity. A missing bearer or one
// that is not a JWT (the public anon key) is anonymous; a JWT that fails
// verification is rejected.
func (s *Server) authenticate(c *gin.Context) {
	bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	bearer = strings.TrimSpace(bearer)
	if !ok || bearer == "" {
		c.Set(identityKey, auth.Identity{})
		c.Next()
		return
	}

	id, err := s.verifier.Verify(bearer)
	switch {
	case err == nil:
		c.Set(identityKey, id)
	case auth.IsMalformed(err):
		c.Set(identityKey, auth.Identity{})
	case errors.Is(err, auth.ErrNoSecret):
		// Without a secret no role can be trusted.
		c.Set(identityKey, auth.Identity{})
	default:
		s.log.Warn(logModule, "rejected token", map[string]interface{}{"error": err.Error(), "ip": c.ClientIP()})
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(msgInvalidToken))
		return
	}
	c.Next()
}

func identityOf(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func (s *Server) rateLimit(c *gin.Context) {
	key := "ip:" + c.ClientIP()
	if id := identityOf(c); id.Authenticated() {
		key = "user:" + id.UserID
	}
	if !s.limiter.allow(key) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(msgRateLimited))
		return
	}
	c.Next()
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request: "+err.Error()))
		return
	}

	id := identityOf(c)
	if req.DeveloperMode && !id.HasRole(auth.RoleDeveloper) {
		s.log.Warn(logModule, "developer mode denied", map[string]interface{}{"user_id": id.UserID, "ip": c.ClientIP()})
		c.JSON(http.StatusForbidden, errorBody(msgDeveloperOnly))
		return
	}

	system := buildSystemPrompt(req.DeveloperMode, req.CustomKnowledge)
	body, err := s.upstream.open(c.Request.Context(), toUpstream(system, req.Messages))
	if err != nil {
		s.upstreamFailure(c, err)
		return
	}
	defer body.Close()

	s.log.Info(logModule, "relaying stream", map[string]interface{}{
		"user_id":   id.UserID,
		"messages":  len(req.Messages),
		"developer": req.DeveloperMode,
	})
	s.relay(c, body)
}

func (s *Server) upstreamFailure(c *gin.Context, err error) {
	var upErr *upstreamError
	if errors.As(err, &upErr) {
		switch upErr.Status {
		case http.StatusTooManyRequests:
			c.JSON(http.StatusTooManyRequests, errorBody(msgRateLimited))
			return
		case http.StatusPaymentRequired:
			c.JSON(http.StatusPaymentRequired, errorBody(msgQuota))
			return
		}
		s.log.Error(logModule, "upstream error", map[string]interface{}{"status": upErr.Status, "body": upErr.Body})
	} else {
		s.log.Error(logModule, "upstream unreachable", map[string]interface{}{"error": err.Error()})
	}
	c.JSON(http.StatusInternalServerError, errorBody(msgUnavailable))
}

// relay copies the upstream event stream to the client, flushing after
// every read so deltas arrive as they are produced.
func (s *Server) relay(c *gin.Context, body io.Reader) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	buf := make([]byte, relayBuffer)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				s.log.Debug(logModule, "client went away", map[string]interface{}{"error": werr.Error()})
				return
			}
			c.Writer.Flush()
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			s.log.Warn(logModule, "upstream stream broke", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": s.cfg.Model})
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("Invalid request: "+err.Error()))
		return
	}
	token, err := s.verifier.Issue(auth.Identity{UserID: req.UserID, Email: req.Email, Roles: req.Roles}, devTokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	s.log.Info(logModule, "issued development token", map[string]interface{}{"user_id": req.UserID, "roles": req.Roles})
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(devTokenTTL.Seconds())})
}
