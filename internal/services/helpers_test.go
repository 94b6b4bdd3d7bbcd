package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/internal/repositories/memory"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	mem        *memory.Store
	store      *repositories.Store
	ledger     *LedgerService
	redemption *RedemptionService
	rewards    *RewardService
}

func newFixture(t *testing.T, opts LedgerOptions) *fixture {
	t.Helper()
	mem := memory.New()
	store := mem.Repositories()
	log := zaptest.NewLogger(t)
	m := metrics.New()
	clock := func() time.Time { return testNow }

	ledger := NewLedgerService(store, opts, log, m)
	ledger.now = clock
	redemption := NewRedemptionService(store, ledger, log, m)
	redemption.now = clock
	rewards := NewRewardService(store, ledger, log, m)
	rewards.now = clock

	return &fixture{mem: mem, store: store, ledger: ledger, redemption: redemption, rewards: rewards}
}

func (f *fixture) customer(t *testing.T, email string) {
	t.Helper()
	_, err := f.store.Customers.Touch(context.Background(), email, "Test", testNow)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, email string) int64 {
	t.Helper()
	c, err := f.store.Customers.FindByEmail(context.Background(), email)
	require.NoError(t, err)
	return c.CoinBalance
}

func (f *fixture) transactions(t *testing.T, email string) []*models.Transaction {
	t.Helper()
	txs, err := f.store.Transactions.FindByEmail(context.Background(), email, 0)
	require.NoError(t, err)
	return txs
}

// failOn makes op fail after it has succeeded `after` times.
func (f *fixture) failOn(op string, after int32) {
	var calls int32
	f.mem.SetFault(func(name string) error {
		if name != op {
			return nil
		}
		if atomic.AddInt32(&calls, 1) > after {
			return errFault
		}
		return nil
	})
}

var errFault = errorString("injected fault")

type errorString string

func (e errorString) Error() string { return string(e) }

func requireCode(t *testing.T, err error, code errutil.CoreStatus) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, errutil.CodeOf(err), "error: %v", err)
}
