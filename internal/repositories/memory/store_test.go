package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	repos := s.Repositories()
	now := time.Now()

	_, err := repos.Customers.Touch(ctx, "a@example.com", "A", now)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := repos.Customers.ApplyCoinDelta(ctx, "a@example.com", 10, false, time.Now()); err != nil {
			return err
		}
		if err := repos.Transactions.Create(ctx, &models.Transaction{Email: "a@example.com", Type: models.TransactionCredit, Coins: 10}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := repos.Customers.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), c.CoinBalance)

	txs, err := repos.Transactions.FindByEmail(ctx, "a@example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	repos := s.Repositories()
	_, err := repos.Customers.Touch(ctx, "a@example.com", "A", time.Now())
	require.NoError(t, err)

	err = repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		return repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := repos.Customers.ApplyCoinDelta(ctx, "a@example.com", 5, false, time.Now())
			return err
		})
	})
	require.NoError(t, err)

	c, err := repos.Customers.FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.CoinBalance)
}

func TestApplyCoinDeltaFloor(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	_, err := repos.Customers.Touch(ctx, "a@example.com", "A", time.Now())
	require.NoError(t, err)

	_, err = repos.Customers.ApplyCoinDelta(ctx, "a@example.com", -1, false, time.Now())
	assert.ErrorIs(t, err, repositories.ErrConditionFailed)

	balance, err := repos.Customers.ApplyCoinDelta(ctx, "a@example.com", -1, true, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(-1), balance)

	_, err = repos.Customers.ApplyCoinDelta(ctx, "missing@example.com", 1, false, time.Now())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	now := time.Now()

	require.NoError(t, repos.Transactions.Create(ctx, &models.Transaction{Email: "a@example.com", IdempotencyKey: "k1"}))
	assert.ErrorIs(t, repos.Transactions.Create(ctx, &models.Transaction{Email: "a@example.com", IdempotencyKey: "k1"}), repositories.ErrDuplicate)
	// Empty keys never collide.
	require.NoError(t, repos.Transactions.Create(ctx, &models.Transaction{Email: "a@example.com"}))
	require.NoError(t, repos.Transactions.Create(ctx, &models.Transaction{Email: "a@example.com"}))

	require.NoError(t, repos.Redemptions.Create(ctx, &models.Redemption{Code: "X", Email: "a@example.com", RedeemedAt: now}))
	assert.ErrorIs(t, repos.Redemptions.Create(ctx, &models.Redemption{Code: "X", Email: "a@example.com", RedeemedAt: now}), repositories.ErrDuplicate)

	res, err := repos.Rewards.CreateMany(ctx, []*models.Reward{
		{CustomerEmail: "a@example.com", DispatchID: "d1"},
		{CustomerEmail: "b@example.com", DispatchID: "d1"},
		{CustomerEmail: "a@example.com", DispatchID: "d1"},
	})
	require.NoError(t, err)
	assert.Equal(t, repositories.BulkResult{Written: 2, Duplicates: 1}, res)
}

func TestIncrementUsageIsConditional(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	now := time.Now()
	past := now.Add(-time.Hour)

	require.NoError(t, repos.RedeemCodes.Create(ctx, &models.RedeemCode{Code: "LIMIT", UsageLimit: 3, IsActive: true}))
	require.NoError(t, repos.RedeemCodes.Create(ctx, &models.RedeemCode{Code: "OLD", UsageLimit: 3, IsActive: true, ExpiresAt: &past}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repos.RedeemCodes.IncrementUsage(ctx, "LIMIT", now); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, ok)

	code, err := repos.RedeemCodes.FindByCode(ctx, "LIMIT")
	require.NoError(t, err)
	assert.Equal(t, int64(3), code.UsedCount)

	assert.ErrorIs(t, repos.RedeemCodes.IncrementUsage(ctx, "OLD", now), repositories.ErrConditionFailed)
	assert.ErrorIs(t, repos.RedeemCodes.IncrementUsage(ctx, "NOPE", now), repositories.ErrNotFound)
}

func TestFaultHookSurfacesStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New()
	repos := s.Repositories()
	s.SetFault(func(op string) error {
		if op == "customers.Count" {
			return errors.New("connection refused")
		}
		return nil
	})

	_, err := repos.Customers.Count(ctx)
	assert.ErrorIs(t, err, repositories.ErrStoreUnavailable)

	_, err = repos.Customers.ListEmails(ctx)
	assert.NoError(t, err)
}
