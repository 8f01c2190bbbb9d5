package model

import (
	"time"
)

// CampaignStatus is the lifecycle state of a campaign. Transitions are
// monotonic: active -> completed, active -> expired, active -> cancelled.
type CampaignStatus string

const (
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignExpired   CampaignStatus = "expired"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Endorsement kinds. Approval endorsements count immediately; referral
// signups count only after the endorser proves email ownership.
const (
	EndorsementKindApproval       = "approval"
	EndorsementKindReferralSignup = "referral-signup"
)

// Campaign represents one owner's threshold-unlock attempt in the database
type Campaign struct {
	ID            string         `db:"id" json:"id"`
	Code          string         `db:"code" json:"code"`
	OwnerIdentity string         `db:"owner_identity" json:"owner_identity"`
	Threshold     int            `db:"threshold" json:"threshold"`
	Progress      int            `db:"progress" json:"progress"`
	Status        CampaignStatus `db:"status" json:"status"`
	RewardKind    PromoKind      `db:"reward_kind" json:"reward_kind"`
	RewardValue   float64        `db:"reward_value" json:"reward_value"`
	RewardCap     *float64       `db:"reward_cap" json:"reward_cap,omitempty"`
	RewardCodeID  *string        `db:"reward_code_id" json:"reward_code_id,omitempty"`
	ExpiresAt     time.Time      `db:"expires_at" json:"expires_at"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Endorsement is one qualifying action toward a campaign's threshold.
// At most one endorsement exists per (campaign_id, endorser_identity).
type Endorsement struct {
	ID               string    `db:"id" json:"id"`
	CampaignID       string    `db:"campaign_id" json:"campaign_id"`
	EndorserIdentity string    `db:"endorser_identity" json:"endorser_identity"`
	Kind             string    `db:"kind" json:"kind"`
	Verified         bool      `db:"verified" json:"verified"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// VerificationToken is a one-time proof of email ownership for a
// referral-signup endorsement. Consumed at most once.
type VerificationToken struct {
	Token         string     `db:"token" json:"token"`
	EndorsementID string     `db:"endorsement_id" json:"endorsement_id"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expires_at"`
	ConsumedAt    *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ReferralSettings is the single-row admin configuration applied to newly
// created campaigns. IsActive is the kill-switch for the whole feature.
type ReferralSettings struct {
	ID          int16     `db:"id" json:"-"`
	Threshold   int       `db:"threshold" json:"threshold"`
	RewardKind  PromoKind `db:"reward_kind" json:"reward_kind"`
	RewardValue float64   `db:"reward_value" json:"reward_value"`
	RewardCap   *float64  `db:"reward_cap" json:"reward_cap,omitempty"`
	ExpiryDays  int       `db:"expiry_days" json:"expiry_days"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
