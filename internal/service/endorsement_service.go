package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/metrics"
	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/notifier"
)

// TokenTTL is how long a verification token stays redeemable.
const TokenTTL = 24 * time.Hour

// EndorsementService is the ledger for endorsements: it validates and
// deduplicates submissions, runs the email verification flow for referral
// signups, and hands verified endorsements to the campaign state machine.
type EndorsementService struct {
	campaignSvc  *CampaignService
	endorsements EndorsementStore
	settings     SettingsStore
	notify       notifier.Notifier
	now          func() time.Time
}

// NewEndorsementService creates a new EndorsementService instance
func NewEndorsementService(campaignSvc *CampaignService, endorsements EndorsementStore, settings SettingsStore, notify notifier.Notifier) *EndorsementService {
	return &EndorsementService{
		campaignSvc:  campaignSvc,
		endorsements: endorsements,
		settings:     settings,
		notify:       notify,
		now:          time.Now,
	}
}

// SubmitResult is the outcome of an accepted endorsement submission.
type SubmitResult struct {
	Endorsement *model.Endorsement `json:"endorsement"`
	Campaign    *model.Campaign    `json:"campaign"`
	// VerificationPending is true for referral signups: the endorsement does
	// not count until the endorser confirms email ownership.
	VerificationPending bool             `json:"verification_pending"`
	Progress            int              `json:"progress"`
	JustCompleted       bool             `json:"just_completed"`
	Reward              *model.PromoCode `json:"reward,omitempty"`
}

// Submit records one endorsement against the campaign with the given
// shareable code. When verifiedOnSubmit is false the endorsement is parked
// behind a verification token and does not count toward progress yet.
func (s *EndorsementService) Submit(ctx context.Context, campaignCode, endorserIdentity, kind string, verifiedOnSubmit bool) (result *SubmitResult, err error) {
	start := s.now()
	defer func() {
		status := "success"
		if err != nil {
			if k := apperr.Kind(err); k != "" {
				status = k
			} else {
				status = "error"
			}
		}
		metrics.RecordEndorsementDuration(status, time.Since(start).Seconds())
	}()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsActive {
		return nil, apperr.ErrCampaignNotEligible
	}

	campaign, err := s.campaignSvc.GetByCode(ctx, campaignCode)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrCampaignNotEligible
	}
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignActive {
		return nil, apperr.ErrCampaignNotEligible
	}

	endorser, err := NormalizeIdentity(endorserIdentity)
	if err != nil {
		return nil, err
	}
	if endorser == campaign.OwnerIdentity {
		return nil, apperr.ErrSelfEndorsementForbidden
	}

	if kind == "" {
		kind = model.EndorsementKindApproval
	}

	endorsement := &model.Endorsement{
		ID:               uuid.NewString(),
		CampaignID:       campaign.ID,
		EndorserIdentity: endorser,
		Kind:             kind,
		Verified:         verifiedOnSubmit,
	}

	if err := s.endorsements.Create(ctx, endorsement); err != nil {
		return nil, err
	}

	result = &SubmitResult{Endorsement: endorsement, Campaign: campaign}

	if !verifiedOnSubmit {
		token := &model.VerificationToken{
			Token:         uuid.NewString(),
			EndorsementID: endorsement.ID,
			ExpiresAt:     s.now().Add(TokenTTL),
		}
		if err := s.endorsements.CreateToken(ctx, token); err != nil {
			return nil, err
		}

		s.notify.Dispatch(notifier.Event{
			Kind:         notifier.EventVerificationRequested,
			Recipient:    endorser,
			CampaignCode: campaign.Code,
			Token:        token.Token,
			OccurredAt:   s.now(),
		})

		result.VerificationPending = true
		result.Progress = campaign.Progress
		return result, nil
	}

	progress, justCompleted, reward, err := s.campaignSvc.RecordVerified(ctx, campaign)
	if err != nil {
		return nil, err
	}

	result.Progress = progress
	result.JustCompleted = justCompleted
	result.Reward = reward
	return result, nil
}

// VerifyResult is the outcome of redeeming a verification token.
type VerifyResult struct {
	Endorsement *model.Endorsement `json:"endorsement"`
	// AlreadyVerified is true when the token was consumed before; the call
	// is idempotent and returns the same endorsement without recounting it.
	AlreadyVerified bool             `json:"already_verified"`
	Progress        int              `json:"progress"`
	JustCompleted   bool             `json:"just_completed"`
	Reward          *model.PromoCode `json:"reward,omitempty"`
}

// Verify redeems a verification token: it marks the token consumed, flips
// the linked endorsement to verified, and counts it toward the campaign.
// Calling it again with the same token returns the same endorsement without
// double-incrementing progress.
func (s *EndorsementService) Verify(ctx context.Context, token string) (*VerifyResult, error) {
	vt, err := s.endorsements.TokenByValue(ctx, token)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, err
	}

	if vt.ConsumedAt != nil {
		return s.alreadyVerified(ctx, vt)
	}
	if !s.now().Before(vt.ExpiresAt) {
		return nil, apperr.ErrInvalidOrExpiredToken
	}

	consumed, err := s.endorsements.ConsumeToken(ctx, vt.Token)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// Lost a race against a concurrent verify of the same token.
		return s.alreadyVerified(ctx, vt)
	}

	flipped, err := s.endorsements.MarkVerified(ctx, vt.EndorsementID)
	if err != nil {
		return nil, err
	}

	endorsement, err := s.endorsements.ByID(ctx, vt.EndorsementID)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Endorsement: endorsement}
	if !flipped {
		result.AlreadyVerified = true
		return result, nil
	}

	campaign, err := s.campaignSvc.GetByID(ctx, endorsement.CampaignID)
	if err != nil {
		return nil, err
	}

	progress, justCompleted, reward, err := s.campaignSvc.RecordVerified(ctx, campaign)
	if errors.Is(err, apperr.ErrNotFound) {
		// The campaign reached a terminal state (expired or cancelled)
		// between submission and verification. The endorsement stays
		// verified for transparency but no longer counts.
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Progress = progress
	result.JustCompleted = justCompleted
	result.Reward = reward
	return result, nil
}

func (s *EndorsementService) alreadyVerified(ctx context.Context, vt *model.VerificationToken) (*VerifyResult, error) {
	endorsement, err := s.endorsements.ByID(ctx, vt.EndorsementID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Endorsement: endorsement, AlreadyVerified: true}, nil
}
