package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/model"
	"github.com/nivello/rewards/internal/notifier"
)

func TestSubmitValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	t.Run("unknown campaign", func(t *testing.T) {
		_, err := env.endorsementSvc.Submit(ctx, "NO-SUCH-CODE", "friend@example.com", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrCampaignNotEligible)
	})

	t.Run("invalid identity", func(t *testing.T) {
		_, err := env.endorsementSvc.Submit(ctx, campaign.Code, "not-an-email", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrInvalidIdentity)
	})

	t.Run("self endorsement", func(t *testing.T) {
		_, err := env.endorsementSvc.Submit(ctx, campaign.Code, " OWNER@example.com", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrSelfEndorsementForbidden)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, err := env.endorsementSvc.Submit(ctx, campaign.Code, "friend@example.com", model.EndorsementKindApproval, true)
		require.NoError(t, err)

		_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "Friend@Example.com", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrDuplicateEndorsement)
	})

	t.Run("expired campaign", func(t *testing.T) {
		env.campaignSvc.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }
		defer func() { env.campaignSvc.now = time.Now }()

		_, err := env.endorsementSvc.Submit(ctx, campaign.Code, "late@example.com", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrCampaignNotEligible)
	})

	t.Run("kill-switch off", func(t *testing.T) {
		settings, err := env.settings.Get(ctx)
		require.NoError(t, err)
		settings.IsActive = false
		require.NoError(t, env.settings.Update(ctx, settings))
		defer func() {
			settings.IsActive = true
			require.NoError(t, env.settings.Update(ctx, settings))
		}()

		_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "blocked@example.com", model.EndorsementKindApproval, true)
		assert.ErrorIs(t, err, apperr.ErrCampaignNotEligible)
	})
}

func TestApprovalCountsImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	result, err := env.endorsementSvc.Submit(ctx, campaign.Code, "friend@example.com", model.EndorsementKindApproval, true)
	require.NoError(t, err)

	assert.True(t, result.Endorsement.Verified)
	assert.False(t, result.VerificationPending)
	assert.Equal(t, 1, result.Progress)

	count, err := env.endorsements.CountVerified(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Progress, count)
}

func TestReferralSignupRequiresVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	result, err := env.endorsementSvc.Submit(ctx, campaign.Code, "friend@example.com", model.EndorsementKindReferralSignup, false)
	require.NoError(t, err)

	assert.False(t, result.Endorsement.Verified)
	assert.True(t, result.VerificationPending)
	assert.Equal(t, 0, result.Progress)

	// Progress untouched until the email is confirmed.
	stored, err := env.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Progress)

	requested := env.events.byKind(notifier.EventVerificationRequested)
	require.Len(t, requested, 1)
	assert.Equal(t, "friend@example.com", requested[0].Recipient)
	assert.NotEmpty(t, requested[0].Token)

	verify, err := env.endorsementSvc.Verify(ctx, requested[0].Token)
	require.NoError(t, err)
	assert.True(t, verify.Endorsement.Verified)
	assert.False(t, verify.AlreadyVerified)
	assert.Equal(t, 1, verify.Progress)

	stored, err = env.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Progress)
}

func TestVerifyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "friend@example.com", model.EndorsementKindReferralSignup, false)
	require.NoError(t, err)

	token := env.events.byKind(notifier.EventVerificationRequested)[0].Token

	first, err := env.endorsementSvc.Verify(ctx, token)
	require.NoError(t, err)
	assert.False(t, first.AlreadyVerified)

	second, err := env.endorsementSvc.Verify(ctx, token)
	require.NoError(t, err)
	assert.True(t, second.AlreadyVerified)
	assert.Equal(t, first.Endorsement.ID, second.Endorsement.ID)
	assert.True(t, second.Endorsement.Verified)

	// No double increment.
	stored, err := env.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Progress)
}

func TestVerifyRejectsUnknownAndExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	_, err = env.endorsementSvc.Verify(ctx, "bogus-token")
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)

	_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "friend@example.com", model.EndorsementKindReferralSignup, false)
	require.NoError(t, err)

	token := env.events.byKind(notifier.EventVerificationRequested)[0].Token

	// 25 hours later the token is past its 24h TTL.
	env.endorsementSvc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = env.endorsementSvc.Verify(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)

	stored, err := env.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Progress)
}

func TestProgressMatchesVerifiedEndorsements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	campaign, _, err := env.campaignSvc.CreateOrGet(ctx, "owner@example.com")
	require.NoError(t, err)

	// Three immediate approvals, one pending referral, one verified referral.
	for _, endorser := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := env.endorsementSvc.Submit(ctx, campaign.Code, endorser, model.EndorsementKindApproval, true)
		require.NoError(t, err)
	}

	_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "pending@example.com", model.EndorsementKindReferralSignup, false)
	require.NoError(t, err)

	_, err = env.endorsementSvc.Submit(ctx, campaign.Code, "confirmed@example.com", model.EndorsementKindReferralSignup, false)
	require.NoError(t, err)

	requested := env.events.byKind(notifier.EventVerificationRequested)
	require.Len(t, requested, 2)
	_, err = env.endorsementSvc.Verify(ctx, requested[1].Token)
	require.NoError(t, err)

	stored, err := env.campaigns.ByID(ctx, campaign.ID)
	require.NoError(t, err)

	count, err := env.endorsements.CountVerified(ctx, campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, stored.Progress)
	assert.Equal(t, stored.Progress, count)
}

func TestNormalizeIdentity(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"User@Example.COM", "user@example.com", false},
		{"  padded@example.com  ", "padded@example.com", false},
		{"", "", true},
		{"no-at-sign", "", true},
		{"two words@example.com", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeIdentity(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, apperr.ErrInvalidIdentity, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
