package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nivello/rewards/internal/apperr"
	"github.com/nivello/rewards/internal/codegen"
	"github.com/nivello/rewards/internal/metrics"
	"github.com/nivello/rewards/internal/model"
)

// RedemptionService validates promo codes against order subtotals, computes
// discounts, and consumes uses. Apply is a pure quote; Commit is the
// conditional usage increment, called only after the order is finalized.
type RedemptionService struct {
	promos PromoStore
	codes  *codegen.Generator
	now    func() time.Time
}

// NewRedemptionService creates a new RedemptionService instance
func NewRedemptionService(promos PromoStore, codes *codegen.Generator) *RedemptionService {
	return &RedemptionService{
		promos: promos,
		codes:  codes,
		now:    time.Now,
	}
}

// Quote is the result of validating a code against a subtotal.
type Quote struct {
	Code           string          `json:"code"`
	Kind           model.PromoKind `json:"kind"`
	DiscountAmount float64         `json:"discount_amount"`
	Message        string          `json:"message"`
}

// Apply validates the code against the subtotal and requester and returns
// the discount it would grant. It never consumes a use: a quote that
// succeeds here can still be rejected at Commit time if another request
// consumes the last use first.
func (s *RedemptionService) Apply(ctx context.Context, code string, subtotal float64, requesterIdentity string) (*Quote, error) {
	promo, err := s.promos.ByCode(ctx, code)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}

	if !promo.Active {
		return nil, apperr.ErrCodeInactive
	}
	if promo.ExpiresAt != nil && !s.now().Before(*promo.ExpiresAt) {
		return nil, apperr.ErrCodeExpired
	}
	if promo.MaxUses != nil && promo.TimesUsed >= *promo.MaxUses {
		return nil, apperr.ErrCodeExhausted
	}
	if subtotal < promo.MinOrderValue {
		return nil, apperr.ErrMinimumNotMet
	}
	if promo.OwnerIdentity != nil {
		requester, err := NormalizeIdentity(requesterIdentity)
		if err != nil || requester != *promo.OwnerIdentity {
			return nil, apperr.ErrNotYourCode
		}
	}

	discount, message := computeDiscount(promo, subtotal)

	return &Quote{
		Code:           promo.Code,
		Kind:           promo.Kind,
		DiscountAmount: discount,
		Message:        message,
	}, nil
}

// Commit consumes one use of the code. Returns ErrCodeExhausted when the
// conditional update matched no rows, even if an earlier Apply succeeded.
func (s *RedemptionService) Commit(ctx context.Context, code string) error {
	committed, err := s.promos.CommitUse(ctx, code)
	if err != nil {
		metrics.RecordRedemption("error")
		return err
	}
	if !committed {
		metrics.RecordRedemption(apperr.ErrCodeExhausted.Kind)
		return apperr.ErrCodeExhausted
	}

	metrics.RecordRedemption("committed")
	return nil
}

// ApplyAndCommit validates the code and, on success, consumes one use.
func (s *RedemptionService) ApplyAndCommit(ctx context.Context, code string, subtotal float64, requesterIdentity string) (*Quote, error) {
	quote, err := s.Apply(ctx, code, subtotal, requesterIdentity)
	if err != nil {
		if k := apperr.Kind(err); k != "" {
			metrics.RecordRedemption(k)
		}
		return nil, err
	}

	if err := s.Commit(ctx, code); err != nil {
		return nil, err
	}

	return quote, nil
}

// CreatePromoParams describes a standalone promo code (e.g. a welcome
// discount) created by an admin.
type CreatePromoParams struct {
	Code             string
	Kind             model.PromoKind
	Value            float64
	MaxUses          *int
	MinOrderValue    float64
	MaxDiscountValue *float64
	ExpiresAt        *time.Time
	OwnerIdentity    *string
}

// CreateStandalone persists a standalone promo code. An empty Code means
// generate one, retrying on collisions.
func (s *RedemptionService) CreateStandalone(ctx context.Context, params CreatePromoParams) (*model.PromoCode, error) {
	if !params.Kind.Valid() {
		return nil, &apperr.Error{Kind: "InvalidCode", Message: fmt.Sprintf("unknown promo kind %q", params.Kind)}
	}

	if params.OwnerIdentity != nil {
		owner, err := NormalizeIdentity(*params.OwnerIdentity)
		if err != nil {
			return nil, err
		}
		params.OwnerIdentity = &owner
	}

	for attempt := 0; attempt < codegen.MaxAttempts; attempt++ {
		code := params.Code
		if code == "" {
			code = s.codes.Generate()
		}

		promo := &model.PromoCode{
			ID:               uuid.NewString(),
			Code:             code,
			Kind:             params.Kind,
			Value:            params.Value,
			MaxUses:          params.MaxUses,
			MinOrderValue:    params.MinOrderValue,
			MaxDiscountValue: params.MaxDiscountValue,
			ExpiresAt:        params.ExpiresAt,
			OwnerIdentity:    params.OwnerIdentity,
			Active:           true,
		}

		err := s.promos.Create(ctx, promo)
		if errors.Is(err, apperr.ErrCodeTaken) {
			if params.Code != "" {
				return nil, &apperr.Error{Kind: "CodeAlreadyExists", Message: "a promo code with this code already exists"}
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		return promo, nil
	}

	return nil, apperr.ErrCodeGenerationExhausted
}

// computeDiscount resolves the opaque reward payload into a concrete
// discount for the given subtotal.
func computeDiscount(promo *model.PromoCode, subtotal float64) (float64, string) {
	switch promo.Kind {
	case model.PromoPercentage:
		discount := subtotal * promo.Value / 100
		if promo.MaxDiscountValue != nil && discount > *promo.MaxDiscountValue {
			discount = *promo.MaxDiscountValue
		}
		return discount, fmt.Sprintf("%.0f%% off", promo.Value)

	case model.PromoFixed:
		discount := promo.Value
		if discount > subtotal {
			discount = subtotal
		}
		return discount, fmt.Sprintf("%.2f off your order", discount)

	case model.PromoFreeProduct:
		// The cap is the product's value ceiling; the checkout flow applies
		// it as a line-item credit rather than a percentage.
		if promo.MaxDiscountValue == nil {
			return 0, "free product"
		}
		return *promo.MaxDiscountValue, "free product"

	default:
		return 0, ""
	}
}
