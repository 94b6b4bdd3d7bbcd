package memory

import (
	"context"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository is an append-only list of ledger entries.
type TransactionRepository struct {
	store *Store
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	release, err := r.store.acquire(ctx, "transactions.Create")
	if err != nil {
		return err
	}
	defer release()

	if tx.IdempotencyKey != "" {
		for _, existing := range r.store.state.transactions {
			if existing.IdempotencyKey == tx.IdempotencyKey {
				return repositories.ErrDuplicate
			}
		}
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	r.store.state.transactions = append(r.store.state.transactions, *tx)
	return nil
}

func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	release, err := r.store.acquire(ctx, "transactions.FindByIdempotencyKey")
	if err != nil {
		return nil, err
	}
	defer release()

	for _, t := range r.store.state.transactions {
		if key != "" && t.IdempotencyKey == key {
			t := t
			return &t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *TransactionRepository) FindByEmail(ctx context.Context, email string, limit int) ([]*models.Transaction, error) {
	release, err := r.store.acquire(ctx, "transactions.FindByEmail")
	if err != nil {
		return nil, err
	}
	defer release()

	out := []*models.Transaction{}
	txs := r.store.state.transactions
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Email != email {
			continue
		}
		t := txs[i]
		out = append(out, &t)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *TransactionRepository) SumCoins(ctx context.Context, email string) (int64, int, error) {
	release, err := r.store.acquire(ctx, "transactions.SumCoins")
	if err != nil {
		return 0, 0, err
	}
	defer release()

	var sum int64
	var n int
	for _, t := range r.store.state.transactions {
		if t.Email == email {
			sum += t.SignedCoins()
			n++
		}
	}
	return sum, n, nil
}
