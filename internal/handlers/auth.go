package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
)

type AuthHandler struct {
	auth        *services.AuthService
	sessions    *services.SessionService
	preferences *services.PreferenceService
	sessionCfg  config.SessionConfig
	frontendURL string
}

func NewAuthHandler(auth *services.AuthService, sessions *services.SessionService, preferences *services.PreferenceService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		sessions:    sessions,
		preferences: preferences,
		sessionCfg:  cfg.Session,
		frontendURL: cfg.Server.FrontendURL,
	}
}

// UserResponse is the public part of a user.
type UserResponse struct {
	ID        uint   `json:"id"`
	GitHubID  int64  `json:"githubId"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Email     string `json:"email"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		GitHubID:  u.GitHubID,
		Login:     u.Login,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Email:     u.Email,
	}
}

// Login redirects to GitHub asking for the basic profile scopes.
// GET /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	h.redirectToGitHub(c, services.BasicScopes, 0)
}

// AuthorizeRepos asks the signed-in user to grant the repo scope.
// GET /api/auth/authorize-repos
func (h *AuthHandler) AuthorizeRepos(c *gin.Context) {
	h.redirectToGitHub(c, services.RepoScopes, middleware.GetUserID(c))
}

func (h *AuthHandler) redirectToGitHub(c *gin.Context, scopes []string, userID uint) {
	target, err := h.auth.AuthorizeURL(scopes, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// Callback completes the OAuth flow and redirects back to the dashboard.
// GET /api/auth/callback
func (h *AuthHandler) Callback(c *gin.Context) {
	if c.Query("error") != "" {
		h.redirectWithError(c, services.ErrAuthCancelled)
		return
	}

	user, err := h.auth.HandleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		logger.Warn().Err(err).Str("request_id", logger.RequestID(c)).Msg("OAuth callback failed")
		h.redirectWithError(c, err)
		return
	}

	sid, _, err := h.sessions.Create(user.ID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		logger.For(c).Error().Err(err).Uint("user_id", user.ID).Msg("Failed to create session")
		h.redirectWithError(c, services.ErrAuthFailed)
		return
	}

	middleware.SetSessionCookie(c, h.sessionCfg, sid, int(h.sessions.TTL().Seconds()))
	logger.Info().Str("login", user.Login).Msg("User signed in")
	c.Redirect(http.StatusFound, h.frontendURL+"/")
}

func (h *AuthHandler) redirectWithError(c *gin.Context, err error) {
	code := services.ErrAuthFailed
	for _, known := range []error{services.ErrAuthCancelled, services.ErrTokenExchange, services.ErrUserFetch} {
		if errors.Is(err, known) {
			code = known
			break
		}
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/?error="+url.QueryEscape(code.Error()))
}

// Me returns the signed-in user and their preferences.
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.GetUser(c)
	pref, err := h.preferences.Get(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{
		"user":        toUserResponse(user),
		"preferences": services.ToPreferenceResponse(pref),
		"scopes":      h.auth.Scopes(user),
	})
}

// Logout ends the current session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Delete(middleware.GetSessionID(c)); err != nil {
		response.Error(c, err)
		return
	}
	middleware.ClearSessionCookie(c, h.sessionCfg)
	response.Success(c, gin.H{"success": true})
}
