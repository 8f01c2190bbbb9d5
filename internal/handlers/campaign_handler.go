package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nivello/rewards/internal/service"
)

type CampaignHandler struct {
	campaigns *service.CampaignService
}

func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// Create creates a campaign for the owner, or returns the existing one.
// Already having a campaign is an idempotent success, not an error.
func (h *CampaignHandler) Create(c *gin.Context) {
	var req struct {
		OwnerIdentity string `json:"owner_identity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	campaign, created, err := h.campaigns.CreateOrGet(c.Request.Context(), req.OwnerIdentity)
	if err != nil {
		fail(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	c.JSON(status, gin.H{
		"success":  true,
		"created":  created,
		"campaign": campaign,
	})
}

// Get returns a campaign's progress by its shareable code, including the
// reward code once the campaign completed.
func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaigns.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}

	reward, err := h.campaigns.Reward(c.Request.Context(), campaign)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"success":  true,
		"campaign": campaign,
	}
	if reward != nil {
		resp["reward"] = reward
	}

	c.JSON(http.StatusOK, resp)
}

// Cancel transitions the owner's active campaign to cancelled.
func (h *CampaignHandler) Cancel(c *gin.Context) {
	var req struct {
		OwnerIdentity string `json:"owner_identity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	campaign, err := h.campaigns.Cancel(c.Request.Context(), c.Param("code"), req.OwnerIdentity)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"campaign": campaign,
	})
}
