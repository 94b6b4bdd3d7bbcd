package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice = "alice@example.com"

func TestCreditThenDebitRestoresBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	before := f.balance(t, alice)

	credit, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 50, Description: "Top up", PaymentMethod: "card", Amount: decimal.RequireFromString("4.99")})
	require.NoError(t, err)
	assert.Equal(t, before+50, credit.CoinBalance)
	assert.False(t, credit.Replayed)
	assert.Equal(t, models.TransactionStatusCompleted, credit.Transaction.Status)

	debit, err := f.ledger.Debit(ctx, models.LedgerRequest{Email: alice, Coins: 50, Description: "Checkout"})
	require.NoError(t, err)
	assert.Equal(t, before, debit.CoinBalance)

	assert.Equal(t, before, f.balance(t, alice))
	assert.Len(t, f.transactions(t, alice), 2)
}

func TestBalanceChangeUsesServiceClock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	later := testNow.Add(time.Hour)
	f.ledger.now = func() time.Time { return later }

	res, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 5})
	require.NoError(t, err)
	assert.Equal(t, later, res.Transaction.CreatedAt)

	customer, err := f.store.Customers.FindByEmail(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, later, customer.UpdatedAt)
}

func TestBalanceEqualsSumOfLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 1000})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := models.LedgerRequest{Email: alice, Coins: int64(i%7 + 1), IdempotencyKey: fmt.Sprintf("op-%d", i)}
			if i%3 == 0 {
				_, _ = f.ledger.Debit(ctx, req)
				return
			}
			_, _ = f.ledger.Credit(ctx, req)
		}(i)
	}
	wg.Wait()

	rec, err := f.ledger.Reconcile(ctx, alice)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, 41, rec.Transactions)
	assert.Equal(t, f.balance(t, alice), rec.LedgerBalance)

	var sum int64
	for _, tx := range f.transactions(t, alice) {
		sum += tx.SignedCoins()
	}
	assert.Equal(t, sum, f.balance(t, alice))
}

func TestIdempotentRetryAppliesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	req := models.LedgerRequest{Email: alice, Coins: 25, PaymentMethod: "card", IdempotencyKey: "topup-1"}

	first, err := f.ledger.Credit(ctx, req)
	require.NoError(t, err)
	second, err := f.ledger.Credit(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, int64(25), f.balance(t, alice))
	assert.Len(t, f.transactions(t, alice), 1)
}

func TestConcurrentRetriesWithSameKeyApplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 10, IdempotencyKey: "same"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Len(t, f.transactions(t, alice), 1)
}

func TestReusedKeyWithDifferentParametersConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 10, IdempotencyKey: "k"})
	require.NoError(t, err)

	_, err = f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 20, IdempotencyKey: "k"})
	requireCode(t, err, errutil.StatusConflict)
	_, err = f.ledger.Debit(ctx, models.LedgerRequest{Email: alice, Coins: 10, IdempotencyKey: "k"})
	requireCode(t, err, errutil.StatusConflict)

	assert.Equal(t, int64(10), f.balance(t, alice))
}

func TestSameKeyFromDifferentCustomersAppliesToEach(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	const bob = "bob@example.com"
	f.customer(t, alice)
	f.customer(t, bob)

	a, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 10, IdempotencyKey: "order-1"})
	require.NoError(t, err)
	b, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: bob, Coins: 10, IdempotencyKey: "order-1"})
	require.NoError(t, err)

	assert.False(t, b.Replayed)
	assert.NotEqual(t, a.Transaction.ID, b.Transaction.ID)
	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Equal(t, int64(10), f.balance(t, bob))
	assert.Equal(t, ClientKey(bob, "order-1"), b.Transaction.IdempotencyKey)
}

func TestClientKeysCannotTakeInternalKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 1, IdempotencyKey: RewardKey("bonus-1", alice)})
	require.NoError(t, err)

	reward, err := f.rewards.SendToOne(ctx, alice, models.RewardPayload{Type: models.RewardCoins, Title: "Bonus", Value: 20, DispatchID: "bonus-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), reward.Value)
	assert.Equal(t, int64(21), f.balance(t, alice))
}

func TestValidationLeavesNoEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	for name, req := range map[string]models.LedgerRequest{
		"zero coins":      {Email: alice, Coins: 0},
		"negative coins":  {Email: alice, Coins: -5},
		"negative amount": {Email: alice, Coins: 5, Amount: decimal.NewFromInt(-1)},
		"missing email":   {Email: "  ", Coins: 5},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.Credit(ctx, req)
			requireCode(t, err, errutil.StatusValidationFailed)
		})
	}

	assert.Equal(t, int64(0), f.balance(t, alice))
	assert.Empty(t, f.transactions(t, alice))
}

func TestDebitBelowZero(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected by default", func(t *testing.T) {
		f := newFixture(t, LedgerOptions{})
		f.customer(t, alice)
		_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 10})
		require.NoError(t, err)

		_, err = f.ledger.Debit(ctx, models.LedgerRequest{Email: alice, Coins: 11})
		requireCode(t, err, errutil.StatusInsufficientCoins)
		assert.Equal(t, int64(10), f.balance(t, alice))
		assert.Len(t, f.transactions(t, alice), 1)
	})

	t.Run("allowed when configured", func(t *testing.T) {
		f := newFixture(t, LedgerOptions{AllowNegativeBalance: true})
		f.customer(t, alice)

		res, err := f.ledger.Debit(ctx, models.LedgerRequest{Email: alice, Coins: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(-5), res.CoinBalance)
	})
}

func TestUnknownCustomer(t *testing.T) {
	f := newFixture(t, LedgerOptions{})
	_, err := f.ledger.Credit(context.Background(), models.LedgerRequest{Email: "ghost@example.com", Coins: 5})
	requireCode(t, err, errutil.StatusNotFound)
}

func TestStoreFailureRollsBackBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	f.failOn("transactions.Create", 0)

	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 30, IdempotencyKey: "retry-me"})
	requireCode(t, err, errutil.StatusStoreUnavailable)

	f.mem.SetFault(nil)
	assert.Equal(t, int64(0), f.balance(t, alice))
	assert.Empty(t, f.transactions(t, alice))

	// The caller retries with the same key once the store is back.
	res, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 30, IdempotencyKey: "retry-me"})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, int64(30), f.balance(t, alice))
}

func TestEmailIsNormalized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: "  Alice@Example.COM ", Coins: 3})
	require.NoError(t, err)

	wallet, err := f.ledger.Wallet(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(3), wallet.CoinBalance)
	require.Len(t, wallet.Transactions, 1)
	assert.Equal(t, "Added 3 coins", wallet.Transactions[0].Description)
	assert.Equal(t, models.SourceWallet, wallet.Transactions[0].Source)
}

func TestReconcileDetectsMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	_, err := f.ledger.Credit(ctx, models.LedgerRequest{Email: alice, Coins: 10})
	require.NoError(t, err)

	// A balance change that bypassed the ledger.
	_, err = f.store.Customers.ApplyCoinDelta(ctx, alice, 5, false, testNow)
	require.NoError(t, err)

	rec, err := f.ledger.Reconcile(ctx, alice)
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, int64(15), rec.CoinBalance)
	assert.Equal(t, int64(10), rec.LedgerBalance)
}
