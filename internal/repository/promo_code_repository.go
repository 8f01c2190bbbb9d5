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

// PromoCodeRepository handles promo code data operations
type PromoCodeRepository struct {
	db *sqlx.DB
}

// NewPromoCodeRepository creates a new promo code repository
func NewPromoCodeRepository(db *sqlx.DB) *PromoCodeRepository {
	return &PromoCodeRepository{db: db}
}

// Create inserts a promo code. Returns apperr.ErrCodeTaken on a code
// collision so the caller can regenerate and retry.
func (r *PromoCodeRepository) Create(ctx context.Context, code *model.PromoCode) error {
	query := `
		INSERT INTO promo_codes (id, code, kind, value, max_uses, times_used,
			min_order_value, max_discount_value, expires_at, owner_identity,
			linked_campaign_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	now := time.Now()
	code.CreatedAt = now
	code.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.Code, code.Kind, code.Value, code.MaxUses, code.TimesUsed,
		code.MinOrderValue, code.MaxDiscountValue, code.ExpiresAt, code.OwnerIdentity,
		code.LinkedCampaignID, code.Active, code.CreatedAt, code.UpdatedAt)

	if isUniqueViolation(err, "") {
		return apperr.ErrCodeTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}

	return nil
}

// ByCode retrieves a promo code by its redeemable code string.
func (r *PromoCodeRepository) ByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	query := `
		SELECT id, code, kind, value, max_uses, times_used, min_order_value,
			max_discount_value, expires_at, owner_identity, linked_campaign_id,
			active, created_at, updated_at
		FROM promo_codes
		WHERE code = $1
	`

	var promo model.PromoCode
	err := r.db.GetContext(ctx, &promo, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}

	return &promo, nil
}

// ByCampaign retrieves the reward code minted for a campaign.
func (r *PromoCodeRepository) ByCampaign(ctx context.Context, campaignID string) (*model.PromoCode, error) {
	query := `
		SELECT id, code, kind, value, max_uses, times_used, min_order_value,
			max_discount_value, expires_at, owner_identity, linked_campaign_id,
			active, created_at, updated_at
		FROM promo_codes
		WHERE linked_campaign_id = $1
	`

	var promo model.PromoCode
	err := r.db.GetContext(ctx, &promo, query, campaignID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign reward code: %w", err)
	}

	return &promo, nil
}

// CommitUse consumes one use of the code. The update is conditioned on the
// pre-increment value, so two concurrent commits against the last remaining
// use cannot both succeed; reaching the cap deactivates the code in the same
// statement. Returns false when no use was available.
func (r *PromoCodeRepository) CommitUse(ctx context.Context, code string) (bool, error) {
	query := `
		UPDATE promo_codes
		SET times_used = times_used + 1,
			active = CASE WHEN max_uses IS NOT NULL AND times_used + 1 >= max_uses
				THEN FALSE ELSE active END,
			updated_at = $2
		WHERE code = $1 AND active = TRUE
			AND (max_uses IS NULL OR times_used < max_uses)
	`

	result, err := r.db.ExecContext(ctx, query, code, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to commit promo code use: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}
