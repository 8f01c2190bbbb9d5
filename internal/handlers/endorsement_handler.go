package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/service"
)

type EndorsementHandler struct {
	endorsements *service.EndorsementService
}

func NewEndorsementHandler(endorsements *service.EndorsementService) *EndorsementHandler {
	return &EndorsementHandler{endorsements: endorsements}
}

// Submit records an endorsement against a campaign. Referral signups are
// parked behind email verification; everything else counts immediately.
func (h *EndorsementHandler) Submit(c *gin.Context) {
	var req struct {
		EndorserIdentity string `json:"endorser_identity" binding:"required"`
		Kind             string `json:"kind"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	verifiedOnSubmit := req.Kind != model.EndorsementKindReferralSignup

	result, err := h.endorsements.Submit(c.Request.Context(), c.Param("code"), req.EndorserIdentity, req.Kind, verifiedOnSubmit)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"success":        true,
		"endorsement":    result.Endorsement,
		"progress":       result.Progress,
		"just_completed": result.JustCompleted,
	}
	if result.VerificationPending {
		resp["verification_pending"] = true
		resp["message"] = "Check your email to confirm your signup."
	}
	if result.Reward != nil {
		resp["reward"] = result.Reward
	}

	c.JSON(http.StatusCreated, resp)
}

// Verify redeems a verification token from the confirmation email.
func (h *EndorsementHandler) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.endorsements.Verify(c.Request.Context(), req.Token)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{
		"success":          true,
		"endorsement":      result.Endorsement,
		"already_verified": result.AlreadyVerified,
	}
	if !result.AlreadyVerified {
		resp["progress"] = result.Progress
		resp["just_completed"] = result.JustCompleted
	}
	if result.Reward != nil {
		resp["reward"] = result.Reward
	}

	c.JSON(http.StatusOK, resp)
}
