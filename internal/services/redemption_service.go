package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"go.uber.org/zap"
)

const maxCodeLength = 64

// RedemptionService validates and applies redeem codes.
type RedemptionService struct {
	store   *repositories.Store
	ledger  *LedgerService
	log     *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewRedemptionService creates a new RedemptionService
func NewRedemptionService(store *repositories.Store, ledger *LedgerService, log *zap.Logger, m *metrics.Collector) *RedemptionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedemptionService{store: store, ledger: ledger, log: log, metrics: m, now: time.Now}
}

// RedemptionKey is the idempotency key of the coin credit made by a redemption.
func RedemptionKey(code, email string) string {
	return "redeem:" + code + ":" + email
}

// Redeem applies code for email. The checks run in a fixed order and the first failing one is
// returned: code exists, is active, is unexpired, has uses left, was not redeemed by email.
// On success the usage increment, coin credit, redemption record and notification are written
// in one transaction. The checks are repeated by the store itself: the usage increment is
// conditional and (code, email) is unique, so concurrent callers cannot oversubscribe a code.
func (s *RedemptionService) Redeem(ctx context.Context, code, email string) (*models.RedemptionResult, error) {
	code = models.NormalizeCode(code)
	email = models.NormalizeEmail(email)
	if code == "" {
		return nil, validation("code", "code is required")
	}
	if email == "" {
		return nil, validation("email", "email is required")
	}

	var result *models.RedemptionResult
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		r, err := s.redeem(ctx, code, email, s.now())
		result = r
		return err
	})
	if err != nil {
		err = s.classify(err)
		s.metrics.Redemption(string(errutil.CodeOf(err)))
		s.log.Info("redemption rejected", zap.String("code", code), zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.metrics.Redemption("success")
	s.log.Info("code redeemed",
		zap.String("code", code),
		zap.String("email", email),
		zap.String("type", string(result.Type)),
		zap.Int64("value", result.Value),
	)
	return result, nil
}

func (s *RedemptionService) redeem(ctx context.Context, code, email string, now time.Time) (*models.RedemptionResult, error) {
	rc, err := s.store.RedeemCodes.FindByCode(ctx, code)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, errutil.New(errutil.StatusCodeNotFound, "Invalid redeem code")
	}
	if err != nil {
		return nil, err
	}
	if err := checkRedeemable(rc, now); err != nil {
		return nil, err
	}
	redeemed, err := s.store.Redemptions.Exists(ctx, code, email)
	if err != nil {
		return nil, err
	}
	if redeemed {
		return nil, alreadyRedeemed()
	}

	if err := s.store.RedeemCodes.IncrementUsage(ctx, code, now); err != nil {
		if errors.Is(err, repositories.ErrConditionFailed) {
			return nil, errutil.New(errutil.StatusLimitReached, "This code has reached its usage limit")
		}
		return nil, err
	}

	result := &models.RedemptionResult{
		Code:        rc.Code,
		Type:        rc.Type,
		Value:       rc.Value,
		Title:       rc.Title,
		Description: rc.Description,
		RedeemedAt:  now.UTC(),
	}
	redemption := &models.Redemption{
		Code:       code,
		Email:      email,
		CodeType:   rc.Type,
		Value:      rc.Value,
		RedeemedAt: now.UTC(),
	}

	if rc.Type == models.CodeTypeCoins {
		credit, err := s.ledger.credit(ctx, models.LedgerRequest{
			Email:          email,
			Coins:          rc.Value,
			Description:    fmt.Sprintf("Redeemed code %s", code),
			Source:         models.SourceRedeemCode,
			Reference:      code,
			IdempotencyKey: RedemptionKey(code, email),
		})
		if err != nil {
			return nil, err
		}
		result.Transaction = credit.Transaction
		result.CoinBalance = &credit.CoinBalance
		redemption.TransactionID = &credit.Transaction.ID
	}

	if err := s.store.Redemptions.Create(ctx, redemption); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, alreadyRedeemed()
		}
		return nil, err
	}

	reward := &models.Reward{
		CustomerEmail: email,
		Type:          models.RewardType(rc.Type),
		Title:         rc.Title,
		Message:       rc.Description,
		Value:         rc.Value,
		CreatedAt:     now.UTC(),
	}
	if err := s.store.Rewards.Create(ctx, reward); err != nil {
		return nil, err
	}
	return result, nil
}

// checkRedeemable applies the code-level checks in order.
func checkRedeemable(rc *models.RedeemCode, now time.Time) error {
	switch {
	case !rc.IsActive:
		return errutil.New(errutil.StatusCodeInactive, "This code is no longer active")
	case rc.Expired(now):
		return errutil.New(errutil.StatusCodeExpired, "This code has expired")
	case rc.Exhausted():
		return errutil.New(errutil.StatusLimitReached, "This code has reached its usage limit")
	}
	return nil
}

func alreadyRedeemed() error {
	return errutil.New(errutil.StatusAlreadyRedeemed, "You have already redeemed this code")
}

// classify maps errors escaping the transaction. A duplicate that surfaced at commit time is
// the (code, email) index firing for a concurrent redemption by the same customer.
func (s *RedemptionService) classify(err error) error {
	var base errutil.BaseError
	if errors.As(err, &base) {
		if base.Code == errutil.StatusConflict && errors.Is(err, repositories.ErrDuplicate) {
			return alreadyRedeemed()
		}
		return err
	}
	if errors.Is(err, repositories.ErrDuplicate) {
		return alreadyRedeemed()
	}
	return storeError("redeem", err)
}

// CreateCode mints a redeem code.
func (s *RedemptionService) CreateCode(ctx context.Context, req models.CreateRedeemCodeRequest, createdBy string) (*models.RedeemCode, error) {
	now := s.now().UTC()
	code := models.NormalizeCode(req.Code)
	switch {
	case code == "":
		return nil, validation("code", "code is required")
	case len(code) > maxCodeLength || strings.ContainsAny(code, " \t\n"):
		return nil, validation("code", "code must be a single word of at most 64 characters")
	case req.Type != models.CodeTypeCoins && req.Type != models.CodeTypeDiscount:
		return nil, validation("type", "type must be coins or discount")
	case req.Value <= 0:
		return nil, validation("value", "value must be positive")
	case req.Type == models.CodeTypeDiscount && req.Value > 100:
		return nil, validation("value", "discount value is a percentage between 1 and 100")
	case req.UsageLimit < 1:
		return nil, validation("usageLimit", "usageLimit must be at least 1")
	case strings.TrimSpace(req.Title) == "":
		return nil, validation("title", "title is required")
	case req.ExpiresAt != nil && !req.ExpiresAt.After(now):
		return nil, validation("expiresAt", "expiresAt must be in the future")
	}

	rc := &models.RedeemCode{
		Code:        code,
		Type:        req.Type,
		Value:       req.Value,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		UsageLimit:  req.UsageLimit,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if rc.ExpiresAt != nil {
		utc := rc.ExpiresAt.UTC()
		rc.ExpiresAt = &utc
	}
	if err := s.store.RedeemCodes.Create(ctx, rc); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errutil.Conflict(fmt.Sprintf("code %s already exists", code))
		}
		return nil, storeError("redeem code", err)
	}
	s.log.Info("redeem code created", zap.String("code", code), zap.String("created_by", createdBy))
	return rc, nil
}

// ListCodes pages through codes, newest first.
func (s *RedemptionService) ListCodes(ctx context.Context, page, limit int) ([]*models.RedeemCode, error) {
	codes, err := s.store.RedeemCodes.FindAll(ctx, page, limit)
	if err != nil {
		return nil, storeError("redeem codes", err)
	}
	return codes, nil
}

// GetCode returns one code.
func (s *RedemptionService) GetCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	rc, err := s.store.RedeemCodes.FindByCode(ctx, models.NormalizeCode(code))
	if err != nil {
		return nil, storeError("redeem code", err)
	}
	return rc, nil
}

// DeactivateCode switches a code off.
func (s *RedemptionService) DeactivateCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	rc, err := s.store.RedeemCodes.Deactivate(ctx, models.NormalizeCode(code), s.now().UTC())
	if err != nil {
		return nil, storeError("redeem code", err)
	}
	s.log.Info("redeem code deactivated", zap.String("code", rc.Code))
	return rc, nil
}

// ListRedemptions returns who redeemed a code.
func (s *RedemptionService) ListRedemptions(ctx context.Context, code string) ([]*models.Redemption, error) {
	code = models.NormalizeCode(code)
	if _, err := s.store.RedeemCodes.FindByCode(ctx, code); err != nil {
		return nil, storeError("redeem code", err)
	}
	redemptions, err := s.store.Redemptions.FindByCode(ctx, code)
	if err != nil {
		return nil, storeError("redemptions", err)
	}
	return redemptions, nil
}
