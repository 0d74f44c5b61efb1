package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/internal/services/activity"
	"github.com/huangang/gitdigest/pkg/logger"
	"github.com/huangang/gitdigest/pkg/response"
)

// ReportHandler serves daily report generation and history.
type ReportHandler struct {
	auth          *services.AuthService
	reports       *services.ReportService
	preferences   *services.PreferenceService
	notifications *services.NotificationService
}

func NewReportHandler(auth *services.AuthService, reports *services.ReportService, preferences *services.PreferenceService, notifications *services.NotificationService) *ReportHandler {
	return &ReportHandler{auth: auth, reports: reports, preferences: preferences, notifications: notifications}
}

// GenerateRequest is the body of POST /api/reports/generate. Unset fields
// come from the user's preferences.
type GenerateRequest struct {
	AccessOptions *activity.AccessScope `json:"accessOptions"`
	Days          int                   `json:"days"`
	Style         string                `json:"style"`
	Language      string                `json:"language"`
	RepoIDs       []int64               `json:"repoIds"`
}

// SummarizeRequest is the body of POST /api/reports/summarize.
type SummarizeRequest struct {
	Activities []activity.RepositoryActivity `json:"activities" binding:"required"`
	Style      string                        `json:"style" binding:"required"`
	Language   string                        `json:"language" binding:"required"`
}

// Generate runs the full pipeline for the signed-in user.
// POST /api/reports/generate
func (h *ReportHandler) Generate(c *gin.Context) {
	var req GenerateRequest
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

	if req.Style == "" {
		req.Style = pref.ReportStyle
	}
	if req.Language == "" {
		req.Language = pref.OutputLanguage
	}
	if req.RepoIDs == nil {
		req.RepoIDs = services.SelectedRepoIDs(pref)
	}

	report, err := h.reports.GenerateReport(c.Request.Context(), &services.GenerateReportRequest{
		ActivityRequest: services.ActivityRequest{
			UserID:       user.ID,
			Identity:     user.Login,
			AccessToken:  token,
			Scope:        accessScope(req.AccessOptions, pref),
			LookbackDays: req.Days,
			RepoIDs:      req.RepoIDs,
		},
		Style:    activity.SummaryStyle(req.Style),
		Language: activity.OutputLanguage(req.Language),
		Timezone: pref.Timezone,
	})
	if errors.Is(err, activity.ErrNoActivity) {
		logger.Info().Str("login", user.Login).Msg("No activity, skipping report")
		response.Outcome(c, "no_activity")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Summarize assembles a report from activities the client already has.
// POST /api/reports/summarize
func (h *ReportHandler) Summarize(c *gin.Context) {
	var req SummarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "activities, style and language are required")
		return
	}

	pref, err := h.preferences.Get(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.reports.Summarize(c.Request.Context(), req.Activities,
		activity.SummaryStyle(req.Style), activity.OutputLanguage(req.Language), pref.Timezone)
	if errors.Is(err, activity.ErrNoActivity) {
		response.Outcome(c, "no_activity")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	var req services.ReportListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.reports.List(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func parseReportID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// GET /api/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := parseReportID(c)
	if !ok {
		return
	}

	report, err := h.reports.GetByID(middleware.GetUserID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// Share sends a stored report to the user's Slack, Discord and email
// channels.
// POST /api/reports/:id/share
func (h *ReportHandler) Share(c *gin.Context) {
	id, ok := parseReportID(c)
	if !ok {
		return
	}

	result, err := h.notifications.ShareReport(c.Request.Context(), middleware.GetUser(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
