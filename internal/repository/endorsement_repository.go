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

// EndorsementRepository handles endorsement and verification token data
// operations. The (campaign_id, endorser_identity) unique index is the
// authority on deduplication.
type EndorsementRepository struct {
	db *sqlx.DB
}

// NewEndorsementRepository creates a new endorsement repository
func NewEndorsementRepository(db *sqlx.DB) *EndorsementRepository {
	return &EndorsementRepository{db: db}
}

// Create inserts an endorsement. Returns apperr.ErrDuplicateEndorsement when
// the endorser already endorsed this campaign.
func (r *EndorsementRepository) Create(ctx context.Context, endorsement *model.Endorsement) error {
	query := `
		INSERT INTO endorsements (id, campaign_id, endorser_identity, kind, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	endorsement.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		endorsement.ID, endorsement.CampaignID, endorsement.EndorserIdentity,
		endorsement.Kind, endorsement.Verified, endorsement.CreatedAt)

	if isUniqueViolation(err, "") {
		return apperr.ErrDuplicateEndorsement
	}
	if err != nil {
		return fmt.Errorf("failed to create endorsement: %w", err)
	}

	return nil
}

// ByID retrieves an endorsement by id.
func (r *EndorsementRepository) ByID(ctx context.Context, id string) (*model.Endorsement, error) {
	query := `
		SELECT id, campaign_id, endorser_identity, kind, verified, created_at
		FROM endorsements
		WHERE id = $1
	`

	var endorsement model.Endorsement
	err := r.db.GetContext(ctx, &endorsement, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get endorsement: %w", err)
	}

	return &endorsement, nil
}

// CountVerified returns the number of verified endorsements for a campaign.
func (r *EndorsementRepository) CountVerified(ctx context.Context, campaignID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM endorsements
		WHERE campaign_id = $1 AND verified = TRUE
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, campaignID); err != nil {
		return 0, fmt.Errorf("failed to count endorsements: %w", err)
	}

	return count, nil
}

// MarkVerified flips an endorsement to verified. Returns false when it was
// already verified, which keeps repeated verification from double-counting.
func (r *EndorsementRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE endorsements
		SET verified = TRUE
		WHERE id = $1 AND verified = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark endorsement verified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// CreateToken inserts a verification token for an endorsement.
func (r *EndorsementRepository) CreateToken(ctx context.Context, token *model.VerificationToken) error {
	query := `
		INSERT INTO verification_tokens (token, endorsement_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	token.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		token.Token, token.EndorsementID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create verification token: %w", err)
	}

	return nil
}

// TokenByValue retrieves a verification token.
func (r *EndorsementRepository) TokenByValue(ctx context.Context, token string) (*model.VerificationToken, error) {
	query := `
		SELECT token, endorsement_id, expires_at, consumed_at, created_at
		FROM verification_tokens
		WHERE token = $1
	`

	var vt model.VerificationToken
	err := r.db.GetContext(ctx, &vt, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification token: %w", err)
	}

	return &vt, nil
}

// ConsumeToken marks a token consumed. Returns false when another request
// consumed it first.
func (r *EndorsementRepository) ConsumeToken(ctx context.Context, token string) (bool, error) {
	query := `
		UPDATE verification_tokens
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, token, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to consume verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}
