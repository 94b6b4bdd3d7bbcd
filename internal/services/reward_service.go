package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TargetAll addresses every customer in a dispatch.
const TargetAll = "all"

const (
	dispatchBatchSize   = 500
	dispatchConcurrency = 8
)

// RewardService fans rewards out to customers.
type RewardService struct {
	store   *repositories.Store
	ledger  *LedgerService
	log     *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewRewardService creates a new RewardService
func NewRewardService(store *repositories.Store, ledger *LedgerService, log *zap.Logger, m *metrics.Collector) *RewardService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RewardService{store: store, ledger: ledger, log: log, metrics: m, now: time.Now}
}

// RewardKey is the idempotency key of the coin credit carried by a reward.
func RewardKey(dispatchID, email string) string {
	return "reward:" + dispatchID + ":" + email
}

// Send dispatches payload to one customer by email or, with TargetAll, to every customer.
func (s *RewardService) Send(ctx context.Context, target string, payload models.RewardPayload) (*models.DispatchResult, error) {
	target = strings.TrimSpace(target)
	if strings.EqualFold(target, TargetAll) {
		return s.SendToAll(ctx, payload)
	}
	reward, err := s.SendToOne(ctx, target, payload)
	if err != nil {
		return nil, err
	}
	return &models.DispatchResult{DispatchID: reward.DispatchID, Targeted: 1, Written: 1}, nil
}

// SendToOne writes one reward. A coins reward also credits the customer in the same
// transaction; re-sending with the same dispatch id is rejected rather than credited twice.
func (s *RewardService) SendToOne(ctx context.Context, email string, payload models.RewardPayload) (*models.Reward, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, validation("target", "target must be an email or \"all\"")
	}
	payload, err := s.normalize(payload)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Customers.FindByEmail(ctx, email); err != nil {
		return nil, storeError("customer "+email, err)
	}

	reward := s.newReward(email, payload)
	if err := s.deliver(ctx, reward); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errutil.Conflict(fmt.Sprintf("dispatch %s was already delivered to %s", payload.DispatchID, email))
		}
		return nil, storeError("reward", err)
	}

	s.metrics.RewardsWritten("one", string(payload.Type), 1)
	s.log.Info("reward sent", zap.String("email", email), zap.String("dispatch_id", payload.DispatchID), zap.String("type", string(payload.Type)))
	return reward, nil
}

// SendToAll writes one reward per customer and reports how many were actually written. The
// fan-out is not atomic as a whole: when some writes fail the result is returned together with
// a PARTIAL_DELIVERY error. Repeating the call with the same dispatch id only fills the gaps.
func (s *RewardService) SendToAll(ctx context.Context, payload models.RewardPayload) (*models.DispatchResult, error) {
	payload, err := s.normalize(payload)
	if err != nil {
		return nil, err
	}

	emails, err := s.store.Customers.ListEmails(ctx)
	if err != nil {
		return nil, storeError("customers", err)
	}
	if len(emails) == 0 {
		return nil, errutil.New(errutil.StatusNoCustomers, "There are no customers to send this reward to")
	}

	result := &models.DispatchResult{DispatchID: payload.DispatchID, Targeted: len(emails)}
	var firstErr error
	if payload.Type == models.RewardCoins {
		firstErr = s.fanOutCredits(ctx, emails, payload, result)
	} else {
		firstErr = s.fanOutBatches(ctx, emails, payload, result)
	}

	s.metrics.RewardsWritten(TargetAll, string(payload.Type), result.Written)
	fields := []zap.Field{
		zap.String("dispatch_id", result.DispatchID),
		zap.Int("targeted", result.Targeted),
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	}

	if result.Failed == 0 {
		s.log.Info("reward dispatched", fields...)
		return result, nil
	}
	s.log.Warn("reward dispatch incomplete", append(fields, zap.Error(firstErr))...)
	if result.Written == 0 && result.Skipped == 0 {
		return result, storeError("reward dispatch", firstErr)
	}
	return result, errutil.New(errutil.StatusPartialDelivery,
		fmt.Sprintf("Reward delivered to %d of %d customers; retry with dispatchId %s to complete",
			result.Written+result.Skipped, result.Targeted, result.DispatchID),
		errutil.WithErr(firstErr))
}

// fanOutBatches inserts plain rewards in unordered batches and stops at the first batch that
// hits a store failure; every reward not written from then on counts as failed.
func (s *RewardService) fanOutBatches(ctx context.Context, emails []string, payload models.RewardPayload, result *models.DispatchResult) error {
	for start := 0; start < len(emails); start += dispatchBatchSize {
		end := start + dispatchBatchSize
		if end > len(emails) {
			end = len(emails)
		}

		batch := make([]*models.Reward, 0, end-start)
		for _, email := range emails[start:end] {
			batch = append(batch, s.newReward(email, payload))
		}

		bulk, err := s.store.Rewards.CreateMany(ctx, batch)
		result.Written += bulk.Written
		result.Skipped += bulk.Duplicates
		if err != nil {
			result.Failed += len(emails) - start - bulk.Written - bulk.Duplicates
			return err
		}
	}
	return nil
}

// fanOutCredits delivers coin rewards one customer per transaction, so every written reward
// has its credit and a failure for one customer leaves the others untouched.
func (s *RewardService) fanOutCredits(ctx context.Context, emails []string, payload models.RewardPayload, result *models.DispatchResult) error {
	var (
		mu       sync.Mutex
		firstErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(dispatchConcurrency)

	for _, email := range emails {
		email := email
		g.Go(func() error {
			err := s.deliver(ctx, s.newReward(email, payload))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Written++
			case errors.Is(err, repositories.ErrDuplicate):
				result.Skipped++
			default:
				result.Failed++
				if firstErr == nil {
					firstErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return firstErr
}

// deliver writes reward and, for coins, the matching credit as one unit.
func (s *RewardService) deliver(ctx context.Context, reward *models.Reward) error {
	if reward.Type != models.RewardCoins {
		return s.store.Rewards.Create(ctx, reward)
	}
	return s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Rewards.Create(ctx, reward); err != nil {
			return err
		}
		_, err := s.ledger.credit(ctx, models.LedgerRequest{
			Email:          reward.CustomerEmail,
			Coins:          reward.Value,
			Description:    reward.Title,
			Source:         models.SourceReward,
			Reference:      reward.DispatchID,
			IdempotencyKey: RewardKey(reward.DispatchID, reward.CustomerEmail),
		})
		return err
	})
}

func (s *RewardService) newReward(email string, payload models.RewardPayload) *models.Reward {
	return &models.Reward{
		CustomerEmail: email,
		Type:          payload.Type,
		Title:         payload.Title,
		Message:       payload.Message,
		Value:         payload.Value,
		DispatchID:    payload.DispatchID,
		ExpiresAt:     payload.ExpiresAt,
		CreatedAt:     s.now().UTC(),
	}
}

func (s *RewardService) normalize(p models.RewardPayload) (models.RewardPayload, error) {
	p.Title = strings.TrimSpace(p.Title)
	switch p.Type {
	case models.RewardCoins, models.RewardDiscount, models.RewardNotification, models.RewardRedeemCode:
	default:
		return p, validation("type", "type must be coins, discount, notification or redeem_code")
	}
	if p.Title == "" {
		return p, validation("title", "title is required")
	}
	if p.Value < 0 {
		return p, validation("value", "value must not be negative")
	}
	if p.Type == models.RewardCoins && p.Value == 0 {
		return p, validation("value", "a coins reward needs a positive value")
	}
	if p.Type == models.RewardDiscount && (p.Value < 1 || p.Value > 100) {
		return p, validation("value", "discount value is a percentage between 1 and 100")
	}
	if p.ExpiresAt != nil {
		if !p.ExpiresAt.After(s.now()) {
			return p, validation("expiresAt", "expiresAt must be in the future")
		}
		utc := p.ExpiresAt.UTC()
		p.ExpiresAt = &utc
	}
	p.DispatchID = strings.TrimSpace(p.DispatchID)
	if p.DispatchID == "" {
		p.DispatchID = uuid.NewString()
	}
	return p, nil
}

// ListForCustomer returns the customer's unexpired rewards, newest first.
func (s *RewardService) ListForCustomer(ctx context.Context, email string) ([]*models.Reward, error) {
	rewards, err := s.store.Rewards.FindByEmail(ctx, models.NormalizeEmail(email), s.now())
	if err != nil {
		return nil, storeError("rewards", err)
	}
	return rewards, nil
}

// MarkRead flips isRead on one of the customer's rewards.
func (s *RewardService) MarkRead(ctx context.Context, email, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return validation("id", "id is not a valid reward id")
	}
	if err := s.store.Rewards.MarkRead(ctx, oid, models.NormalizeEmail(email)); err != nil {
		return storeError("reward", err)
	}
	return nil
}
