package service

import (
	"context"

	"github.com/nivello/rewards/internal/model"
)

// CampaignStore is the persistence contract for campaigns. Increment and the
// other mutating calls must be conditional updates: under concurrent callers
// at the threshold boundary exactly one Increment reports completion, and
// LinkRewardCode succeeds at most once per campaign.
type CampaignStore interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	ByCode(ctx context.Context, code string) (*model.Campaign, error)
	ByID(ctx context.Context, id string) (*model.Campaign, error)
	ByOwner(ctx context.Context, owner string) (*model.Campaign, error)
	Increment(ctx context.Context, id string) (progress int, justCompleted bool, err error)
	Expire(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) (bool, error)
	LinkRewardCode(ctx context.Context, id, rewardCodeID string) (bool, error)
}

// EndorsementStore is the persistence contract for endorsements and their
// verification tokens.
type EndorsementStore interface {
	Create(ctx context.Context, endorsement *model.Endorsement) error
	ByID(ctx context.Context, id string) (*model.Endorsement, error)
	CountVerified(ctx context.Context, campaignID string) (int, error)
	MarkVerified(ctx context.Context, id string) (bool, error)
	CreateToken(ctx context.Context, token *model.VerificationToken) error
	TokenByValue(ctx context.Context, token string) (*model.VerificationToken, error)
	ConsumeToken(ctx context.Context, token string) (bool, error)
}

// PromoStore is the persistence contract for promo codes. CommitUse consumes
// one use conditionally and reports whether a use was available.
type PromoStore interface {
	Create(ctx context.Context, code *model.PromoCode) error
	ByCode(ctx context.Context, code string) (*model.PromoCode, error)
	ByCampaign(ctx context.Context, campaignID string) (*model.PromoCode, error)
	CommitUse(ctx context.Context, code string) (bool, error)
}

// SettingsStore is the persistence contract for the campaign settings row.
type SettingsStore interface {
	Get(ctx context.Context) (*model.ReferralSettings, error)
	Update(ctx context.Context, settings *model.ReferralSettings) error
}
