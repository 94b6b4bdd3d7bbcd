// Package memory is an in-process implementation of the repositories. It honours the same
// contracts as the MongoDB implementation: unique keys, conditional updates and
// all-or-nothing transactions (a single store-wide lock plus snapshot rollback).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
)

type txKey struct{}

// Store holds all collections in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	fault func(op string) error
}

type state struct {
	customers    map[string]models.Customer
	transactions []models.Transaction
	codes        map[string]models.RedeemCode
	redemptions  []models.Redemption
	rewards      []models.Reward
	pickupPoints []models.PickupPoint
	reviews      []models.Review
	admins       map[string]models.AdminUser
}

func newState() *state {
	return &state{
		customers: make(map[string]models.Customer),
		codes:     make(map[string]models.RedeemCode),
		admins:    make(map[string]models.AdminUser),
	}
}

func (st *state) clone() *state {
	c := &state{
		customers:    make(map[string]models.Customer, len(st.customers)),
		codes:        make(map[string]models.RedeemCode, len(st.codes)),
		admins:       make(map[string]models.AdminUser, len(st.admins)),
		transactions: append([]models.Transaction(nil), st.transactions...),
		redemptions:  append([]models.Redemption(nil), st.redemptions...),
		rewards:      append([]models.Reward(nil), st.rewards...),
		pickupPoints: append([]models.PickupPoint(nil), st.pickupPoints...),
		reviews:      append([]models.Review(nil), st.reviews...),
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	for k, v := range st.admins {
		c.admins[k] = v
	}
	return c
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repositories.Store {
	return &repositories.Store{
		Customers:    &CustomerRepository{s},
		Transactions: &TransactionRepository{s},
		RedeemCodes:  &RedeemCodeRepository{s},
		Redemptions:  &RedemptionRepository{s},
		Rewards:      &RewardRepository{s},
		PickupPoints: &PickupPointRepository{s},
		Reviews:      &ReviewRepository{s},
		AdminUsers:   &AdminUserRepository{s},
		Tx:           s,
		Pinger:       s,
	}
}

// SetFault installs a hook consulted at the start of every operation; a non-nil return fails
// the operation with ErrStoreUnavailable. Operation names look like "customers.ApplyCoinDelta".
func (s *Store) SetFault(fault func(op string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fault
}

// WithTransaction implements repositories.TxRunner.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", repositories.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Ping implements repositories.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.begin(ctx, "admin.Ping")
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// acquire takes the store lock unless ctx already holds it through a transaction, then runs
// the fault hook.
func (s *Store) acquire(ctx context.Context, op string) (func(), error) {
	release := func() {}
	if !s.inTx(ctx) {
		s.mu.Lock()
		release = s.mu.Unlock
	}
	if err := s.check(ctx, op); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (s *Store) begin(ctx context.Context, op string) error {
	release, err := s.acquire(ctx, op)
	if err != nil {
		return err
	}
	release()
	return nil
}

func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", repositories.ErrStoreUnavailable, err)
	}
	if s.fault != nil {
		if err := s.fault(op); err != nil {
			return fmt.Errorf("%w: %s: %w", repositories.ErrStoreUnavailable, op, err)
		}
	}
	return nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
