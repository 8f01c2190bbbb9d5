package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/codegen"
	"github.com/nivello/rewards/internal/metrics"
	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/notifier"
)

// CampaignService owns the campaign lifecycle: creation, lazy expiry, the
// threshold-crossing increment, and reward issuance on completion.
type CampaignService struct {
	campaigns CampaignStore
	promos    PromoStore
	settings  SettingsStore
	codes     *codegen.Generator
	notify    notifier.Notifier
	now       func() time.Time
}

// NewCampaignService creates a new CampaignService instance
func NewCampaignService(campaigns CampaignStore, promos PromoStore, settings SettingsStore, codes *codegen.Generator, notify notifier.Notifier) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		promos:    promos,
		settings:  settings,
		codes:     codes,
		notify:    notify,
		now:       time.Now,
	}
}

// CreateOrGet returns the owner's live campaign, creating one from the
// current settings when none exists. The second return value reports whether
// a campaign was created; an existing campaign is an idempotent success, not
// an error.
func (s *CampaignService) CreateOrGet(ctx context.Context, ownerIdentity string) (*model.Campaign, bool, error) {
	owner, err := NormalizeIdentity(ownerIdentity)
	if err != nil {
		return nil, false, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if !settings.IsActive {
		return nil, false, apperr.ErrCampaignNotEligible
	}

	existing, err := s.campaigns.ByOwner(ctx, owner)
	if err == nil {
		// A campaign past its deadline no longer blocks the owner; expire
		// it and create a fresh one below.
		existing = s.lazyExpire(ctx, existing)
		if existing.Status != model.CampaignExpired {
			return existing, false, nil
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		campaign := &model.Campaign{
			ID:            uuid.NewString(),
			Code:          s.codes.Generate(),
			OwnerIdentity: owner,
			Threshold:     settings.Threshold,
			Status:        model.CampaignActive,
			RewardKind:    settings.RewardKind,
			RewardValue:   settings.RewardValue,
			RewardCap:     settings.RewardCap,
			ExpiresAt:     s.now().AddDate(0, 0, settings.ExpiryDays),
		}

		err := s.campaigns.Create(ctx, campaign)
		switch {
		case err == nil:
			return campaign, true, nil
		case errors.Is(err, apperr.ErrCodeTaken):
			continue
		case errors.Is(err, apperr.ErrOwnerConflict):
			// Lost a race against a concurrent create for the same owner.
			existing, err := s.campaigns.ByOwner(ctx, owner)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		default:
			return nil, false, err
		}
	}

	return nil, false, apperr.ErrCodeGenerationExhausted
}

// GetByCode returns the campaign with the given shareable code, applying the
// lazy expiry transition when its deadline has passed.
func (s *CampaignService) GetByCode(ctx context.Context, code string) (*model.Campaign, error) {
	campaign, err := s.campaigns.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.lazyExpire(ctx, campaign), nil
}

// GetByID returns the campaign by id, applying lazy expiry.
func (s *CampaignService) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	campaign, err := s.campaigns.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.lazyExpire(ctx, campaign), nil
}

// Reward returns the promo code minted for a completed campaign, or nil when
// none has been issued.
func (s *CampaignService) Reward(ctx context.Context, campaign *model.Campaign) (*model.PromoCode, error) {
	if campaign.RewardCodeID == nil {
		return nil, nil
	}

	reward, err := s.promos.ByCampaign(ctx, campaign.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// Cancel transitions the owner's active campaign to cancelled.
func (s *CampaignService) Cancel(ctx context.Context, code, ownerIdentity string) (*model.Campaign, error) {
	owner, err := NormalizeIdentity(ownerIdentity)
	if err != nil {
		return nil, err
	}

	campaign, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if campaign.OwnerIdentity != owner {
		return nil, apperr.ErrNotCampaignOwner
	}

	cancelled, err := s.campaigns.Cancel(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, apperr.ErrCampaignNotEligible
	}

	campaign.Status = model.CampaignCancelled
	return campaign, nil
}

// RecordVerified counts one verified endorsement against the campaign. When
// the increment crosses the threshold it mints the reward and notifies the
// owner; the conditional update in the store guarantees that happens for
// exactly one caller.
func (s *CampaignService) RecordVerified(ctx context.Context, campaign *model.Campaign) (int, bool, *model.PromoCode, error) {
	progress, justCompleted, err := s.campaigns.Increment(ctx, campaign.ID)
	if err != nil {
		return 0, false, nil, err
	}
	if !justCompleted {
		return progress, false, nil, nil
	}

	metrics.CampaignsCompletedTotal.Inc()

	reward, err := s.issueReward(ctx, campaign)
	if err != nil {
		return progress, true, nil, err
	}

	s.notify.Dispatch(notifier.Event{
		Kind:         notifier.EventRewardUnlocked,
		Recipient:    campaign.OwnerIdentity,
		CampaignCode: campaign.Code,
		RewardCode:   reward.Code,
		OccurredAt:   s.now(),
	})

	return progress, true, reward, nil
}

// issueReward mints the single-use reward code for a completed campaign and
// links it back. Mint and link are two separate writes: a crash between them
// can strand an unlinked code, but the IS NULL guard on the link means a
// duplicated completion signal can never double-mint.
func (s *CampaignService) issueReward(ctx context.Context, campaign *model.Campaign) (*model.PromoCode, error) {
	maxUses := 1

	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		reward := &model.PromoCode{
			ID:               uuid.NewString(),
			Code:             s.codes.Generate(),
			Kind:             campaign.RewardKind,
			Value:            campaign.RewardValue,
			MaxUses:          &maxUses,
			MaxDiscountValue: campaign.RewardCap,
			OwnerIdentity:    &campaign.OwnerIdentity,
			LinkedCampaignID: &campaign.ID,
			Active:           true,
		}

		err := s.promos.Create(ctx, reward)
		if errors.Is(err, apperr.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to mint reward code: %w", err)
		}

		linked, err := s.campaigns.LinkRewardCode(ctx, campaign.ID, reward.ID)
		if err != nil {
			return nil, err
		}
		if !linked {
			log.Printf("Campaign %s already has a reward code linked", campaign.ID)
		}

		return reward, nil
	}

	return nil, apperr.ErrCodeGenerationExhausted
}

func (s *CampaignService) lazyExpire(ctx context.Context, campaign *model.Campaign) *model.Campaign {
	if campaign.Status != model.CampaignActive {
		return campaign
	}
	if s.now().Before(campaign.ExpiresAt) {
		return campaign
	}

	if err := s.campaigns.Expire(ctx, campaign.ID); err != nil {
		log.Printf("Failed to lazily expire campaign %s: %v", campaign.ID, err)
	}
	campaign.Status = model.CampaignExpired
	return campaign
}
