package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/models"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/response"
)

type GitHubHandler struct {
	auth         *services.AuthService
	repositories *services.RepositoryService
	reports      *services.ReportService
	preferences  *services.PreferenceService
}

func NewGitHubHandler(auth *services.AuthService, repositories *services.RepositoryService, reports *services.ReportService, preferences *services.PreferenceService) *GitHubHandler {
	return &GitHubHandler{
		auth:         auth,
		repositories: repositories,
		reports:      reports,
		preferences:  preferences,
	}
}

// ActivityRequest is the body of POST /api/github/activity.
type ActivityRequest struct {
	AccessOptions *activity.AccessScope `json:"accessOptions"`
	Days          int                   `json:"days"`
	RepoIDs       []int64               `json:"repoIds"`
}

// GET /api/github/public-repos/:username
func (h *GitHubHandler) PublicRepos(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		response.BadRequest(c, "username is required")
		return
	}

	repos, err := h.repositories.PublicRepositories(c.Request.Context(), username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, repos)
}

// GET /api/github/private-repos
func (h *GitHubHandler) PrivateRepos(c *gin.Context) {
	user := middleware.GetUser(c)
	token, ok := accessToken(c, h.auth, user)
	if !ok {
		return
	}

	repos, err := h.repositories.PrivateRepositories(c.Request.Context(), user.ID, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, repos)
}

// Activity returns the signed-in user's aggregated activity.
// POST /api/github/activity
func (h *GitHubHandler) Activity(c *gin.Context) {
	var req ActivityRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	user := middleware.GetUser(c)
	token, ok := accessToken(c, h.auth, user)
	if !ok {
		return
	}
	pref, err := h.preferences.Get(user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	activities, err := h.reports.CollectActivity(c.Request.Context(), &services.ActivityRequest{
		UserID:       user.ID,
		Identity:     user.Login,
		AccessToken:  token,
		Scope:        accessScope(req.AccessOptions, pref),
		LookbackDays: req.Days,
		RepoIDs:      req.RepoIDs,
	})
	if errors.Is(err, activity.ErrNoActivity) {
		response.Success(c, []activity.RepositoryActivity{})
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, activities)
}

// accessToken decrypts the user's GitHub token, answering 401 when the token
// has been revoked.
func accessToken(c *gin.Context, auth *services.AuthService, user *models.User) (string, bool) {
	token, err := auth.AccessToken(user)
	if errors.Is(err, services.ErrTokenInvalid) {
		response.Unauthorized(c, "Session expired, please login again")
		return "", false
	}
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return token, true
}

// accessScope falls back to public repositories, plus private ones when the
// user opted in, if the request does not choose.
func accessScope(opts *activity.AccessScope, pref *models.UserPreference) activity.AccessScope {
	if opts != nil {
		return *opts
	}
	return activity.AccessScope{IncludePublic: true, IncludePrivate: pref.IncludePrivate}
}

// bindOptionalJSON binds the body into obj when there is one. An empty body
// leaves obj untouched so the caller falls back to defaults.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
