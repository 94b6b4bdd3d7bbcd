package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository keeps customers keyed by email.
type CustomerRepository struct {
	store *Store
}

func (r *CustomerRepository) Touch(ctx context.Context, email, name string, at time.Time) (*models.Customer, error) {
	release, err := r.store.acquire(ctx, "customers.Touch")
	if err != nil {
		return nil, err
	}
	defer release()

	c, ok := r.store.state.customers[email]
	if !ok {
		c = models.Customer{ID: primitive.NewObjectID(), Email: email, Name: name, CreatedAt: at}
	}
	c.LastLoginAt = at
	c.UpdatedAt = at
	r.store.state.customers[email] = c
	return &c, nil
}

func (r *CustomerRepository) SaveProfile(ctx context.Context, email string, profile models.CustomerProfile, at time.Time) (*models.Customer, error) {
	release, err := r.store.acquire(ctx, "customers.SaveProfile")
	if err != nil {
		return nil, err
	}
	defer release()

	c, ok := r.store.state.customers[email]
	if !ok {
		c = models.Customer{ID: primitive.NewObjectID(), Email: email, CreatedAt: at}
	}
	c.Name = profile.Name
	c.Phone = profile.Phone
	c.Address = profile.Address
	c.UpdatedAt = at
	r.store.state.customers[email] = c
	return &c, nil
}

func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	release, err := r.store.acquire(ctx, "customers.FindByEmail")
	if err != nil {
		return nil, err
	}
	defer release()

	c, ok := r.store.state.customers[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Customer, error) {
	release, err := r.store.acquire(ctx, "customers.FindAll")
	if err != nil {
		return nil, err
	}
	defer release()

	all := r.sorted()
	return paginate(all, page, limit), nil
}

func (r *CustomerRepository) ListEmails(ctx context.Context) ([]string, error) {
	release, err := r.store.acquire(ctx, "customers.ListEmails")
	if err != nil {
		return nil, err
	}
	defer release()

	emails := make([]string, 0, len(r.store.state.customers))
	for _, c := range r.sorted() {
		emails = append(emails, c.Email)
	}
	return emails, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	release, err := r.store.acquire(ctx, "customers.Count")
	if err != nil {
		return 0, err
	}
	defer release()

	return int64(len(r.store.state.customers)), nil
}

func (r *CustomerRepository) ApplyCoinDelta(ctx context.Context, email string, delta int64, allowNegative bool, at time.Time) (int64, error) {
	release, err := r.store.acquire(ctx, "customers.ApplyCoinDelta")
	if err != nil {
		return 0, err
	}
	defer release()

	c, ok := r.store.state.customers[email]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	if !allowNegative && c.CoinBalance+delta < 0 {
		return 0, repositories.ErrConditionFailed
	}
	c.CoinBalance += delta
	c.UpdatedAt = at
	r.store.state.customers[email] = c
	return c.CoinBalance, nil
}

// sorted returns customers ordered by email. Caller holds the lock.
func (r *CustomerRepository) sorted() []*models.Customer {
	out := make([]*models.Customer, 0, len(r.store.state.customers))
	for _, c := range r.store.state.customers {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}
