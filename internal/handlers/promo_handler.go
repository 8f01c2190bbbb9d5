package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/service"
)

type PromoHandler struct {
	redemptions *service.RedemptionService
}

func NewPromoHandler(redemptions *service.RedemptionService) *PromoHandler {
	return &PromoHandler{redemptions: redemptions}
}

// Preview validates a code against a subtotal without consuming a use.
func (h *PromoHandler) Preview(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		badRequest(c, "code is required")
		return
	}

	subtotal, err := strconv.ParseFloat(c.Query("subtotal"), 64)
	if err != nil || subtotal < 0 {
		badRequest(c, "subtotal must be a non-negative number")
		return
	}

	quote, err := h.redemptions.Apply(c.Request.Context(), code, subtotal, c.Query("requester_identity"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quote":   quote,
	})
}

// Apply validates a code and consumes one use. Called only after the order
// is finalized; the quote returned earlier by Preview is not a reservation.
func (h *PromoHandler) Apply(c *gin.Context) {
	var req struct {
		Code              string  `json:"code" binding:"required"`
		OrderID           string  `json:"order_id" binding:"required"`
		Subtotal          float64 `json:"subtotal" binding:"min=0"`
		RequesterIdentity string  `json:"requester_identity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	quote, err := h.redemptions.ApplyAndCommit(c.Request.Context(), req.Code, req.Subtotal, req.RequesterIdentity)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"order_id": req.OrderID,
		"quote":    quote,
	})
}

// Create creates a standalone promo code (admin).
func (h *PromoHandler) Create(c *gin.Context) {
	var req struct {
		Code             string     `json:"code"`
		Kind             string     `json:"kind" binding:"required"`
		Value            float64    `json:"value" binding:"min=0"`
		MaxUses          *int       `json:"max_uses"`
		MinOrderValue    float64    `json:"min_order_value"`
		MaxDiscountValue *float64   `json:"max_discount_value"`
		ExpiresAt        *time.Time `json:"expires_at"`
		OwnerIdentity    *string    `json:"owner_identity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	promo, err := h.redemptions.CreateStandalone(c.Request.Context(), service.CreatePromoParams{
		Code:             req.Code,
		Kind:             model.PromoKind(req.Kind),
		Value:            req.Value,
		MaxUses:          req.MaxUses,
		MinOrderValue:    req.MinOrderValue,
		MaxDiscountValue: req.MaxDiscountValue,
		ExpiresAt:        req.ExpiresAt,
		OwnerIdentity:    req.OwnerIdentity,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"promo_code": promo,
	})
}
