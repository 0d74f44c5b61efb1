package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
)

const (
	ContextUser      = "user"
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
)

// SessionLookup resolves a session id to its user.
type SessionLookup interface {
	Lookup(sid string) (*models.User, error)
	Delete(sid string) error
}

// SessionRequired rejects requests without a live session cookie. A user
// whose GitHub token was rejected is signed out.
func SessionRequired(sessions SessionLookup, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || sid == "" {
			response.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}

		user, err := sessions.Lookup(sid)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logger.For(c).Error().Err(err).Msg("Session lookup failed")
			}
			ClearSessionCookie(c, cfg)
			response.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}

		if !user.TokenValid {
			_ = sessions.Delete(sid)
			ClearSessionCookie(c, cfg)
			response.Unauthorized(c, "Session expired, please login again")
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextSessionID, sid)
		c.Next()
	}
}

func SetSessionCookie(c *gin.Context, cfg config.SessionConfig, sid string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, sid, maxAge, "/", "", cfg.Secure, true)
}

func ClearSessionCookie(c *gin.Context, cfg config.SessionConfig) {
	SetSessionCookie(c, cfg, "", -1)
}

// GetUser gets the signed-in user from context
func GetUser(c *gin.Context) *models.User {
	if user, exists := c.Get(ContextUser); exists {
		return user.(*models.User)
	}
	return nil
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// AdminRequired lets only the listed GitHub logins through. It must run after
// SessionRequired.
func AdminRequired(logins []string) gin.HandlerFunc {
	admins := make(map[string]struct{}, len(logins))
	for _, l := range logins {
		admins[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			response.Unauthorized(c, "Not authenticated")
			c.Abort()
			return
		}
		if _, ok := admins[strings.ToLower(user.Login)]; !ok {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
