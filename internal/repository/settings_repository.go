package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nivello/rewards/internal/model"
)

// SettingsRepository handles the single referral settings row seeded by the
// initial migration.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the current campaign settings.
func (r *SettingsRepository) Get(ctx context.Context) (*model.ReferralSettings, error) {
	query := `
		SELECT id, threshold, reward_kind, reward_value, reward_cap, expiry_days, is_active, updated_at
		FROM referral_settings
		WHERE id = 1
	`

	var settings model.ReferralSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("failed to get referral settings: %w", err)
	}

	return &settings, nil
}

// Update overwrites the campaign settings.
func (r *SettingsRepository) Update(ctx context.Context, settings *model.ReferralSettings) error {
	query := `
		UPDATE referral_settings
		SET threshold = $1, reward_kind = $2, reward_value = $3, reward_cap = $4,
			expiry_days = $5, is_active = $6, updated_at = $7
		WHERE id = 1
	`

	settings.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		settings.Threshold, settings.RewardKind, settings.RewardValue, settings.RewardCap,
		settings.ExpiryDays, settings.IsActive, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update referral settings: %w", err)
	}

	return nil
}
