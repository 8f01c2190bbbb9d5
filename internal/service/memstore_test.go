package service

import (
	"context"
	"sync"
	"time"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/model"
)

// In-memory store fakes for service tests. They honor the same conditional
// semantics as the SQL layer: every counter mutation is an atomic
// check-and-set under the mutex, and reads return copies.

type memCampaignStore struct {
	mu   sync.Mutex
	byID map[string]*model.Campaign
}

func newMemCampaignStore() *memCampaignStore {
	return &memCampaignStore{byID: make(map[string]*model.Campaign)}
}

func (s *memCampaignStore) Create(_ context.Context, campaign *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Code == campaign.Code {
			return apperr.ErrCodeTaken
		}
		if existing.OwnerIdentity == campaign.OwnerIdentity &&
			(existing.Status == model.CampaignActive || existing.Status == model.CampaignCompleted) {
			return apperr.ErrOwnerConflict
		}
	}

	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now
	clone := *campaign
	s.byID[campaign.ID] = &clone
	return nil
}

func (s *memCampaignStore) ByCode(_ context.Context, code string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if c.Code == code {
			clone := *c
			return &clone, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memCampaignStore) ByID(_ context.Context, id string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[id]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *memCampaignStore) ByOwner(_ context.Context, owner string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.byID {
		if c.OwnerIdentity == owner &&
			(c.Status == model.CampaignActive || c.Status == model.CampaignCompleted) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memCampaignStore) Increment(_ context.Context, id string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return 0, false, apperr.ErrNotFound
	}

	if c.Status == model.CampaignActive && c.Progress+1 >= c.Threshold {
		c.Progress++
		c.Status = model.CampaignCompleted
		now := time.Now()
		c.CompletedAt = &now
		return c.Progress, true, nil
	}

	if c.Status == model.CampaignActive || c.Status == model.CampaignCompleted {
		c.Progress++
		return c.Progress, false, nil
	}

	return 0, false, apperr.ErrNotFound
}

func (s *memCampaignStore) Expire(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[id]; ok && c.Status == model.CampaignActive {
		c.Status = model.CampaignExpired
	}
	return nil
}

func (s *memCampaignStore) Cancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byID[id]; ok && c.Status == model.CampaignActive {
		c.Status = model.CampaignCancelled
		return true, nil
	}
	return false, nil
}

func (s *memCampaignStore) LinkRewardCode(_ context.Context, id, rewardCodeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok || c.RewardCodeID != nil {
		return false, nil
	}
	c.RewardCodeID = &rewardCodeID
	return true, nil
}

type memEndorsementStore struct {
	mu     sync.Mutex
	byID   map[string]*model.Endorsement
	tokens map[string]*model.VerificationToken
}

func newMemEndorsementStore() *memEndorsementStore {
	return &memEndorsementStore{
		byID:   make(map[string]*model.Endorsement),
		tokens: make(map[string]*model.VerificationToken),
	}
}

func (s *memEndorsementStore) Create(_ context.Context, endorsement *model.Endorsement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.byID {
		if e.CampaignID == endorsement.CampaignID && e.EndorserIdentity == endorsement.EndorserIdentity {
			return apperr.ErrDuplicateEndorsement
		}
	}

	endorsement.CreatedAt = time.Now()
	clone := *endorsement
	s.byID[endorsement.ID] = &clone
	return nil
}

func (s *memEndorsementStore) ByID(_ context.Context, id string) (*model.Endorsement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *memEndorsementStore) CountVerified(_ context.Context, campaignID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.byID {
		if e.CampaignID == campaignID && e.Verified {
			count++
		}
	}
	return count, nil
}

func (s *memEndorsementStore) MarkVerified(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok || e.Verified {
		return false, nil
	}
	e.Verified = true
	return true, nil
}

func (s *memEndorsementStore) CreateToken(_ context.Context, token *model.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.CreatedAt = time.Now()
	clone := *token
	s.tokens[token.Token] = &clone
	return nil
}

func (s *memEndorsementStore) TokenByValue(_ context.Context, token string) (*model.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[token]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *memEndorsementStore) ConsumeToken(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || t.ConsumedAt != nil {
		return false, nil
	}
	now := time.Now()
	t.ConsumedAt = &now
	return true, nil
}

type memPromoStore struct {
	mu   sync.Mutex
	byID map[string]*model.PromoCode
}

func newMemPromoStore() *memPromoStore {
	return &memPromoStore{byID: make(map[string]*model.PromoCode)}
}

func (s *memPromoStore) Create(_ context.Context, code *model.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byID {
		if p.Code == code.Code {
			return apperr.ErrCodeTaken
		}
	}

	now := time.Now()
	code.CreatedAt = now
	code.UpdatedAt = now
	clone := *code
	s.byID[code.ID] = &clone
	return nil
}

func (s *memPromoStore) ByCode(_ context.Context, code string) (*model.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Code == code {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memPromoStore) ByCampaign(_ context.Context, campaignID string) (*model.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.LinkedCampaignID != nil && *p.LinkedCampaignID == campaignID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *memPromoStore) CommitUse(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.byID {
		if p.Code != code {
			continue
		}
		if !p.Active {
			return false, nil
		}
		if p.MaxUses != nil && p.TimesUsed >= *p.MaxUses {
			return false, nil
		}
		p.TimesUsed++
		if p.MaxUses != nil && p.TimesUsed >= *p.MaxUses {
			p.Active = false
		}
		return true, nil
	}

	return false, nil
}

func (s *memPromoStore) count(campaignID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.byID {
		if p.LinkedCampaignID != nil && *p.LinkedCampaignID == campaignID {
			n++
		}
	}
	return n
}

type memSettingsStore struct {
	mu       sync.Mutex
	settings model.ReferralSettings
}

func newMemSettingsStore() *memSettingsStore {
	return &memSettingsStore{
		settings: model.ReferralSettings{
			ID:          1,
			Threshold:   10,
			RewardKind:  model.PromoPercentage,
			RewardValue: 10,
			ExpiryDays:  30,
			IsActive:    true,
		},
	}
}

func (s *memSettingsStore) Get(_ context.Context) (*model.ReferralSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := s.settings
	return &clone, nil
}

func (s *memSettingsStore) Update(_ context.Context, settings *model.ReferralSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.UpdatedAt = time.Now()
	s.settings = *settings
	return nil
}
