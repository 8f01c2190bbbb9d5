package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/model"
)

// CampaignRepository handles campaign data operations. All counter mutations
// are single conditional UPDATEs so correctness holds across concurrent
// request-handling processes.
type CampaignRepository struct {
	db *sqlx.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, code, owner_identity, threshold, progress, status,
	reward_kind, reward_value, reward_cap, reward_code_id,
	expires_at, completed_at, created_at, updated_at`

// Create inserts a new campaign. Returns apperr.ErrCodeTaken when the
// shareable code collides and apperr.ErrOwnerConflict when the owner already
// has a live campaign.
func (r *CampaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	query := `
		INSERT INTO campaigns (id, code, owner_identity, threshold, progress, status,
			reward_kind, reward_value, reward_cap, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now()
	campaign.CreatedAt = now
	campaign.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		campaign.ID, campaign.Code, campaign.OwnerIdentity, campaign.Threshold,
		campaign.Progress, campaign.Status, campaign.RewardKind, campaign.RewardValue,
		campaign.RewardCap, campaign.ExpiresAt, campaign.CreatedAt, campaign.UpdatedAt)

	if isUniqueViolation(err, "campaigns_code_key") {
		return apperr.ErrCodeTaken
	}
	if isUniqueViolation(err, "idx_campaigns_owner_live") {
		return apperr.ErrOwnerConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// ByCode retrieves a campaign by its shareable code.
func (r *CampaignRepository) ByCode(ctx context.Context, code string) (*model.Campaign, error) {
	return r.getOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE code = $1`, code)
}

// ByID retrieves a campaign by id.
func (r *CampaignRepository) ByID(ctx context.Context, id string) (*model.Campaign, error) {
	return r.getOne(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
}

// ByOwner retrieves the owner's live (active or completed) campaign. The
// partial unique index guarantees at most one exists.
func (r *CampaignRepository) ByOwner(ctx context.Context, owner string) (*model.Campaign, error) {
	return r.getOne(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE owner_identity = $1 AND status IN ('active', 'completed')
	`, owner)
}

func (r *CampaignRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.Campaign, error) {
	var campaign model.Campaign
	err := r.db.GetContext(ctx, &campaign, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &campaign, nil
}

// Increment records one verified endorsement against the campaign counter.
// The completing step is a single conditional UPDATE, so when concurrent
// increments race at the threshold boundary exactly one caller observes
// justCompleted = true. Increments against an already-completed campaign
// still bump the counter for display but never re-trigger completion.
func (r *CampaignRepository) Increment(ctx context.Context, id string) (int, bool, error) {
	now := time.Now()

	completing := `
		UPDATE campaigns
		SET progress = progress + 1, status = 'completed', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'active' AND progress + 1 >= threshold
		RETURNING progress
	`

	var progress int
	err := r.db.GetContext(ctx, &progress, completing, id, now)
	if err == nil {
		return progress, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to complete campaign: %w", err)
	}

	plain := `
		UPDATE campaigns
		SET progress = progress + 1, updated_at = $2
		WHERE id = $1 AND status IN ('active', 'completed')
		RETURNING progress
	`

	err = r.db.GetContext(ctx, &progress, plain, id, now)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, apperr.ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment campaign progress: %w", err)
	}

	return progress, false, nil
}

// Expire marks an active campaign expired. Used by the lazy expiry check at
// read time; a no-op when another request already transitioned the campaign.
func (r *CampaignRepository) Expire(ctx context.Context, id string) error {
	query := `
		UPDATE campaigns
		SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status = 'active'
	`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to expire campaign: %w", err)
	}

	return nil
}

// Cancel transitions an active campaign to cancelled. Returns false when the
// campaign was not active.
func (r *CampaignRepository) Cancel(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE campaigns
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to cancel campaign: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// LinkRewardCode sets the campaign's reward code reference. The IS NULL
// guard makes the write happen at most once per campaign, so a retried
// completion signal cannot mint two codes for one campaign.
func (r *CampaignRepository) LinkRewardCode(ctx context.Context, id, rewardCodeID string) (bool, error) {
	query := `
		UPDATE campaigns
		SET reward_code_id = $2, updated_at = $3
		WHERE id = $1 AND reward_code_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, rewardCodeID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to link reward code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}
