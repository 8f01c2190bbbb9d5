package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/service"
)

type SettingsHandler struct {
	settings service.SettingsStore
}

func NewSettingsHandler(settings service.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the campaign configuration applied to new campaigns.
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": settings,
	})
}

// Update overwrites the campaign configuration. IsActive=false is the
// kill-switch: new campaigns and endorsements are rejected while it is off.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req struct {
		Threshold   int      `json:"threshold" binding:"required,min=1"`
		RewardKind  string   `json:"reward_kind" binding:"required"`
		RewardValue float64  `json:"reward_value" binding:"min=0"`
		RewardCap   *float64 `json:"reward_cap"`
		ExpiryDays  int      `json:"expiry_days" binding:"required,min=1"`
		IsActive    *bool    `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	kind := model.PromoKind(req.RewardKind)
	if !kind.Valid() {
		badRequest(c, "reward_kind must be percentage, fixed, or free_product")
		return
	}

	settings := &model.ReferralSettings{
		Threshold:   req.Threshold,
		RewardKind:  kind,
		RewardValue: req.RewardValue,
		RewardCap:   req.RewardCap,
		ExpiryDays:  req.ExpiryDays,
		IsActive:    *req.IsActive,
	}

	if err := h.settings.Update(c.Request.Context(), settings); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"settings": settings,
	})
}
