package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/config"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/pkg/response"
)

// SystemConfigHandler exposes the runtime knobs stored in system_configs.
type SystemConfigHandler struct {
	configService *services.SystemConfigService
	activity      config.ActivityConfig
	summary       config.SummaryConfig
}

func NewSystemConfigHandler(configService *services.SystemConfigService, cfg *config.Config) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: configService,
		activity:      cfg.Activity,
		summary:       cfg.Summary,
	}
}

type settingsResponse struct {
	FetchConcurrency int                    `json:"fetch_concurrency"`
	FetchTimeout     int                    `json:"fetch_timeout"`
	MaxLookbackDays  int                    `json:"max_lookback_days"`
	HistoryEnabled   bool                   `json:"history_enabled"`
	Summary          services.SummaryLimits `json:"summary"`
}

func (h *SystemConfigHandler) current() settingsResponse {
	settings := h.configService.ActivitySettings(h.activity)
	return settingsResponse{
		FetchConcurrency: settings.FetchConcurrency,
		FetchTimeout:     int(settings.FetchTimeout.Seconds()),
		MaxLookbackDays:  settings.MaxLookbackDays,
		HistoryEnabled:   h.configService.HistoryEnabled(),
		Summary:          h.configService.SummaryLimits(h.summary),
	}
}

// GET /api/system/settings
func (h *SystemConfigHandler) GetSettings(c *gin.Context) {
	response.Success(c, h.current())
}

// PUT /api/system/settings
func (h *SystemConfigHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateActivitySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	for _, v := range []*int{req.FetchConcurrency, req.FetchTimeout, req.MaxLookbackDays} {
		if v != nil && *v < 1 {
			response.BadRequest(c, "settings must be positive")
			return
		}
	}

	if err := h.configService.UpdateActivitySettings(&req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, h.current())
}
