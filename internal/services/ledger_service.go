package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"github.com/ArowuTest/storefront-coins/pkg/errutil"
	"github.com/ArowuTest/storefront-coins/pkg/metrics"
	"go.uber.org/zap"
)

// LedgerOptions holds the balance rules.
type LedgerOptions struct {
	AllowNegativeBalance bool
	HistoryLimit         int
}

// LedgerService applies balance-changing operations. Every applied operation writes exactly one
// immutable transaction and one balance delta in the same store transaction.
type LedgerService struct {
	store   *repositories.Store
	opts    LedgerOptions
	log     *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store *repositories.Store, opts LedgerOptions, log *zap.Logger, m *metrics.Collector) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &LedgerService{store: store, opts: opts, log: log, metrics: m, now: time.Now}
}

// Credit adds coins to the customer's balance.
func (s *LedgerService) Credit(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	req.Type = models.TransactionCredit
	return s.Apply(ctx, req)
}

// ClientKey scopes a caller-supplied idempotency key to one customer. Internal keys built by
// RedemptionKey and RewardKey never carry this prefix.
func ClientKey(email, key string) string {
	return clientKeyPrefix + models.NormalizeEmail(email) + ":" + key
}

const clientKeyPrefix = "client:"

// Debit removes coins from the customer's balance.
func (s *LedgerService) Debit(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	req.Type = models.TransactionDebit
	return s.Apply(ctx, req)
}

// Apply runs one ledger operation. When ctx is already inside a store transaction the operation
// joins it. A request whose idempotency key was applied before returns the original transaction
// with Replayed set; the same key with different parameters is a conflict.
func (s *LedgerService) Apply(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if req.IdempotencyKey != "" {
		req.IdempotencyKey = ClientKey(req.Email, req.IdempotencyKey)
	}
	return s.run(ctx, req)
}

// credit applies a credit keyed by an internal idempotency key, left unscoped.
func (s *LedgerService) credit(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	req.Type = models.TransactionCredit
	req, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, req)
}

func (s *LedgerService) run(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	var result *models.LedgerResult
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		r, err := s.apply(ctx, req)
		result = r
		return err
	})
	if err != nil && errors.Is(err, repositories.ErrDuplicate) && req.IdempotencyKey != "" {
		// A concurrent request with the same key committed first.
		result, err = s.replay(ctx, req)
	}
	if err != nil {
		s.metrics.LedgerOp(string(req.Type), req.Source, string(errutil.CodeOf(storeError("", err))), req.Coins)
		s.log.Warn("ledger operation rejected",
			zap.String("email", req.Email),
			zap.String("type", string(req.Type)),
			zap.Int64("coins", req.Coins),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		return nil, storeError("ledger operation failed", err)
	}

	outcome := "applied"
	if result.Replayed {
		outcome = "replayed"
	}
	s.metrics.LedgerOp(string(req.Type), req.Source, outcome, req.Coins)
	s.log.Info("ledger operation "+outcome,
		zap.String("email", req.Email),
		zap.String("type", string(req.Type)),
		zap.Int64("coins", req.Coins),
		zap.Int64("balance", result.CoinBalance),
		zap.String("idempotency_key", req.IdempotencyKey),
	)
	return result, nil
}

func (s *LedgerService) apply(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.store.Transactions.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			return s.replayOf(ctx, existing, req)
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}

	now := s.now().UTC()
	delta := req.Coins
	if req.Type == models.TransactionDebit {
		delta = -req.Coins
	}
	balance, err := s.store.Customers.ApplyCoinDelta(ctx, req.Email, delta, s.opts.AllowNegativeBalance, now)
	switch {
	case errors.Is(err, repositories.ErrConditionFailed):
		return nil, errutil.New(errutil.StatusInsufficientCoins,
			fmt.Sprintf("insufficient coins: debit of %d exceeds the current balance", req.Coins))
	case errors.Is(err, repositories.ErrNotFound):
		return nil, errutil.NotFound(fmt.Sprintf("customer %s not found", req.Email))
	case err != nil:
		return nil, err
	}

	tx := &models.Transaction{
		Email:          req.Email,
		Type:           req.Type,
		Description:    req.Description,
		Amount:         req.Amount,
		Coins:          req.Coins,
		PaymentMethod:  req.PaymentMethod,
		Status:         models.TransactionStatusCompleted,
		Source:         req.Source,
		Reference:      req.Reference,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
	}
	if err := s.store.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	return &models.LedgerResult{Transaction: tx, CoinBalance: balance}, nil
}

func (s *LedgerService) replay(ctx context.Context, req models.LedgerRequest) (*models.LedgerResult, error) {
	existing, err := s.store.Transactions.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return s.replayOf(ctx, existing, req)
}

func (s *LedgerService) replayOf(ctx context.Context, existing *models.Transaction, req models.LedgerRequest) (*models.LedgerResult, error) {
	if !sameOperation(existing, req) {
		return nil, errutil.Conflict("idempotency key was already used for a different operation")
	}
	customer, err := s.store.Customers.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	return &models.LedgerResult{Transaction: existing, CoinBalance: customer.CoinBalance, Replayed: true}, nil
}

func sameOperation(tx *models.Transaction, req models.LedgerRequest) bool {
	return tx.Email == req.Email &&
		tx.Type == req.Type &&
		tx.Coins == req.Coins &&
		tx.Amount.Equal(req.Amount) &&
		tx.Source == req.Source
}

func (s *LedgerService) normalize(req models.LedgerRequest) (models.LedgerRequest, error) {
	req.Email = models.NormalizeEmail(req.Email)
	if req.Email == "" {
		return req, validation("email", "email is required")
	}
	if req.Type != models.TransactionCredit && req.Type != models.TransactionDebit {
		return req, validation("type", "type must be credit or debit")
	}
	if req.Coins <= 0 {
		return req, validation("coins", "coins must be a positive whole number")
	}
	if req.Amount.IsNegative() {
		return req, validation("amount", "amount must not be negative")
	}
	if req.Amount.Exponent() < -2 {
		req.Amount = req.Amount.Round(2)
	}
	if req.Description == "" {
		req.Description = defaultDescription(req.Type, req.Coins)
	}
	if req.Source == "" {
		req.Source = models.SourceWallet
	}
	return req, nil
}

func defaultDescription(t models.TransactionType, coins int64) string {
	if t == models.TransactionDebit {
		return fmt.Sprintf("Spent %d coins", coins)
	}
	return fmt.Sprintf("Added %d coins", coins)
}

// Wallet returns the balance and the most recent transactions.
func (s *LedgerService) Wallet(ctx context.Context, email string) (*models.Wallet, error) {
	email = models.NormalizeEmail(email)
	customer, err := s.store.Customers.FindByEmail(ctx, email)
	if err != nil {
		return nil, storeError("customer", err)
	}
	txs, err := s.store.Transactions.FindByEmail(ctx, email, s.opts.HistoryLimit)
	if err != nil {
		return nil, storeError("transactions", err)
	}
	return &models.Wallet{Email: email, CoinBalance: customer.CoinBalance, Transactions: txs}, nil
}

// History returns every transaction of a customer, newest first.
func (s *LedgerService) History(ctx context.Context, email string) ([]*models.Transaction, error) {
	txs, err := s.store.Transactions.FindByEmail(ctx, models.NormalizeEmail(email), 0)
	if err != nil {
		return nil, storeError("transactions", err)
	}
	return txs, nil
}

// Reconcile compares the stored balance with the sum of the ledger. Both reads happen in one
// snapshot so concurrent operations cannot produce a false mismatch.
func (s *LedgerService) Reconcile(ctx context.Context, email string) (*models.Reconciliation, error) {
	email = models.NormalizeEmail(email)
	rec := &models.Reconciliation{Email: email}
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		customer, err := s.store.Customers.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		sum, n, err := s.store.Transactions.SumCoins(ctx, email)
		if err != nil {
			return err
		}
		rec.CoinBalance = customer.CoinBalance
		rec.LedgerBalance = sum
		rec.Transactions = n
		return nil
	})
	if err != nil {
		return nil, storeError("customer", err)
	}
	rec.Consistent = rec.CoinBalance == rec.LedgerBalance
	if !rec.Consistent {
		s.log.Error("ledger mismatch",
			zap.String("email", email),
			zap.Int64("balance", rec.CoinBalance),
			zap.Int64("ledger_balance", rec.LedgerBalance),
		)
	}
	return rec, nil
}
