package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/gitdigest/internal/middleware"
	"github.com/huangang/gitdigest/internal/services"
	"github.com/huangang/gitdigest/pkg/response"
)

type PreferenceHandler struct {
	service *services.PreferenceService
}

func NewPreferenceHandler(service *services.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// GET /api/preferences
func (h *PreferenceHandler) Get(c *gin.Context) {
	pref, err := h.service.Get(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, services.ToPreferenceResponse(pref))
}

// PUT /api/preferences
func (h *PreferenceHandler) Update(c *gin.Context) {
	var req services.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	pref, err := h.service.Update(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, services.ToPreferenceResponse(pref))
}
