package model

import (
	"time"
)

// PromoKind classifies how a code's value turns into a discount.
type PromoKind string

const (
	PromoPercentage  PromoKind = "percentage"
	PromoFixed       PromoKind = "fixed"
	PromoFreeProduct PromoKind = "free_product"
)

// Valid reports whether k is a known promo kind.
func (k PromoKind) Valid() bool {
	switch k {
	case PromoPercentage, PromoFixed, PromoFreeProduct:
		return true
	}
	return false
}

// PromoCode is a redeemable unit, created standalone or minted by the
// reward issuer on campaign completion. Never deleted, only deactivated.
type PromoCode struct {
	ID               string     `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	Kind             PromoKind  `db:"kind" json:"kind"`
	Value            float64    `db:"value" json:"value"`
	MaxUses          *int       `db:"max_uses" json:"max_uses,omitempty"`
	TimesUsed        int        `db:"times_used" json:"times_used"`
	MinOrderValue    float64    `db:"min_order_value" json:"min_order_value"`
	MaxDiscountValue *float64   `db:"max_discount_value" json:"max_discount_value,omitempty"`
	ExpiresAt        *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	OwnerIdentity    *string    `db:"owner_identity" json:"owner_identity,omitempty"`
	LinkedCampaignID *string    `db:"linked_campaign_id" json:"linked_campaign_id,omitempty"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
