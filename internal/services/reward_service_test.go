package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) customers(t *testing.T, n int) []string {
	t.Helper()
	emails := make([]string, 0, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("customer%02d@example.com", i)
		f.customer(t, email)
		emails = append(emails, email)
	}
	return emails
}

func TestSendToAllWithoutCustomers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})

	res, err := f.rewards.Send(ctx, "all", models.RewardPayload{Type: models.RewardNotification, Title: "Hello"})
	requireCode(t, err, errutil.StatusNoCustomers)
	assert.Nil(t, res)

	n, err := f.store.Rewards.CountByDispatch(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSendNotificationToAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	emails := f.customers(t, 3)

	res, err := f.rewards.Send(ctx, "ALL", models.RewardPayload{Type: models.RewardNotification, Title: " Sale starts today ", DispatchID: "sale-1"})
	require.NoError(t, err)
	assert.Equal(t, &models.DispatchResult{DispatchID: "sale-1", Targeted: 3, Written: 3}, res)

	for _, email := range emails {
		rewards, err := f.rewards.ListForCustomer(ctx, email)
		require.NoError(t, err)
		require.Len(t, rewards, 1)
		assert.Equal(t, "Sale starts today", rewards[0].Title)
		assert.False(t, rewards[0].IsRead)
		assert.Equal(t, int64(0), f.balance(t, email))
	}
}

func TestSendToAllGeneratesDispatchID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customers(t, 2)

	res, err := f.rewards.SendToAll(ctx, models.RewardPayload{Type: models.RewardDiscount, Title: "10% off", Value: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DispatchID)

	n, err := f.store.Rewards.CountByDispatch(ctx, res.DispatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCoinRewardResendDoesNotDoubleCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	emails := f.customers(t, 4)
	payload := models.RewardPayload{Type: models.RewardCoins, Title: "Loyalty bonus", Value: 15, DispatchID: "loyalty-may"}

	first, err := f.rewards.SendToAll(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Written)

	second, err := f.rewards.SendToAll(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 4, second.Skipped)

	for _, email := range emails {
		assert.Equal(t, int64(15), f.balance(t, email))
		txs := f.transactions(t, email)
		require.Len(t, txs, 1)
		assert.Equal(t, models.SourceReward, txs[0].Source)
		assert.Equal(t, RewardKey("loyalty-may", email), txs[0].IdempotencyKey)
	}
}

func TestPartialDeliveryOfNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customers(t, 3)
	f.failOn("rewards.CreateMany.insert", 2)
	payload := models.RewardPayload{Type: models.RewardNotification, Title: "News", DispatchID: "news-1"}

	res, err := f.rewards.SendToAll(ctx, payload)
	requireCode(t, err, errutil.StatusPartialDelivery)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Targeted)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Failed)

	f.mem.SetFault(nil)
	res, err = f.rewards.SendToAll(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 2, res.Skipped)

	n, err := f.store.Rewards.CountByDispatch(ctx, "news-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPartialDeliveryOfCoins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	emails := f.customers(t, 3)
	f.failOn("rewards.Create", 2)
	payload := models.RewardPayload{Type: models.RewardCoins, Title: "Bonus", Value: 5, DispatchID: "bonus-1"}

	res, err := f.rewards.SendToAll(ctx, payload)
	requireCode(t, err, errutil.StatusPartialDelivery)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 1, res.Failed)

	var total int64
	for _, email := range emails {
		total += f.balance(t, email)
	}
	assert.Equal(t, int64(10), total)

	f.mem.SetFault(nil)
	res, err = f.rewards.SendToAll(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	for _, email := range emails {
		assert.Equal(t, int64(5), f.balance(t, email))
	}
}

func TestDispatchWithNothingWrittenIsStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customers(t, 2)
	f.failOn("rewards.CreateMany.insert", 0)

	res, err := f.rewards.SendToAll(ctx, models.RewardPayload{Type: models.RewardNotification, Title: "News"})
	requireCode(t, err, errutil.StatusStoreUnavailable)
	assert.Equal(t, 2, res.Failed)
}

func TestSendToOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)
	payload := models.RewardPayload{Type: models.RewardCoins, Title: "Sorry for the delay", Value: 30, DispatchID: "apology-7"}

	res, err := f.rewards.Send(ctx, " Alice@example.com ", payload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, int64(30), f.balance(t, alice))

	_, err = f.rewards.Send(ctx, alice, payload)
	requireCode(t, err, errutil.StatusConflict)
	assert.Equal(t, int64(30), f.balance(t, alice))

	_, err = f.rewards.Send(ctx, "ghost@example.com", payload)
	requireCode(t, err, errutil.StatusNotFound)
}

func TestRewardPayloadValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	for name, p := range map[string]models.RewardPayload{
		"unknown type":      {Type: "points", Title: "t"},
		"missing title":     {Type: models.RewardNotification, Title: " "},
		"coins without val": {Type: models.RewardCoins, Title: "t"},
		"discount over 100": {Type: models.RewardDiscount, Title: "t", Value: 150},
		"expired already":   {Type: models.RewardNotification, Title: "t", ExpiresAt: timePtr(testNow)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.rewards.Send(ctx, alice, p)
			requireCode(t, err, errutil.StatusValidationFailed)
		})
	}

	_, err := f.rewards.Send(ctx, " ", models.RewardPayload{Type: models.RewardNotification, Title: "t"})
	requireCode(t, err, errutil.StatusValidationFailed)
}

func TestListForCustomerHidesExpiredAndMarkRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, LedgerOptions{})
	f.customer(t, alice)

	soon := testNow.Add(time.Hour)
	_, err := f.rewards.SendToOne(ctx, alice, models.RewardPayload{Type: models.RewardNotification, Title: "Flash sale", ExpiresAt: &soon})
	require.NoError(t, err)
	kept, err := f.rewards.SendToOne(ctx, alice, models.RewardPayload{Type: models.RewardNotification, Title: "Welcome"})
	require.NoError(t, err)

	rewards, err := f.rewards.ListForCustomer(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, rewards, 2)

	f.rewards.now = func() time.Time { return soon }
	rewards, err = f.rewards.ListForCustomer(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rewards, 1)
	assert.Equal(t, kept.ID, rewards[0].ID)

	require.NoError(t, f.rewards.MarkRead(ctx, alice, kept.ID.Hex()))
	rewards, err = f.rewards.ListForCustomer(ctx, alice)
	require.NoError(t, err)
	assert.True(t, rewards[0].IsRead)

	requireCode(t, f.rewards.MarkRead(ctx, "bob@example.com", kept.ID.Hex()), errutil.StatusNotFound)
	requireCode(t, f.rewards.MarkRead(ctx, alice, "not-an-id"), errutil.StatusValidationFailed)
}
