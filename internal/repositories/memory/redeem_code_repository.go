package memory

import (
	"context"
	"sort"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.RedeemCodeRepository = (*RedeemCodeRepository)(nil)
	_ repositories.RedemptionRepository = (*RedemptionRepository)(nil)
)

// RedeemCodeRepository keeps codes keyed by their uppercased code.
type RedeemCodeRepository struct {
	store *Store
}

func (r *RedeemCodeRepository) Create(ctx context.Context, code *models.RedeemCode) error {
	release, err := r.store.acquire(ctx, "redeem_codes.Create")
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.store.state.codes[code.Code]; exists {
		return repositories.ErrDuplicate
	}
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	r.store.state.codes[code.Code] = *code
	return nil
}

func (r *RedeemCodeRepository) FindByCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	release, err := r.store.acquire(ctx, "redeem_codes.FindByCode")
	if err != nil {
		return nil, err
	}
	defer release()

	c, ok := r.store.state.codes[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &c, nil
}

func (r *RedeemCodeRepository) FindAll(ctx context.Context, page, limit int) ([]*models.RedeemCode, error) {
	release, err := r.store.acquire(ctx, "redeem_codes.FindAll")
	if err != nil {
		return nil, err
	}
	defer release()

	out := make([]*models.RedeemCode, 0, len(r.store.state.codes))
	for _, c := range r.store.state.codes {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return paginate(out, page, limit), nil
}

func (r *RedeemCodeRepository) IncrementUsage(ctx context.Context, code string, now time.Time) error {
	release, err := r.store.acquire(ctx, "redeem_codes.IncrementUsage")
	if err != nil {
		return err
	}
	defer release()

	c, ok := r.store.state.codes[code]
	if !ok {
		return repositories.ErrNotFound
	}
	if !c.IsActive || c.Expired(now) || c.Exhausted() {
		return repositories.ErrConditionFailed
	}
	c.UsedCount++
	c.UpdatedAt = now
	r.store.state.codes[code] = c
	return nil
}

func (r *RedeemCodeRepository) Deactivate(ctx context.Context, code string, at time.Time) (*models.RedeemCode, error) {
	release, err := r.store.acquire(ctx, "redeem_codes.Deactivate")
	if err != nil {
		return nil, err
	}
	defer release()

	c, ok := r.store.state.codes[code]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c.IsActive = false
	c.UpdatedAt = at
	r.store.state.codes[code] = c
	return &c, nil
}

// RedemptionRepository enforces one redemption per (code, email).
type RedemptionRepository struct {
	store *Store
}

func (r *RedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	release, err := r.store.acquire(ctx, "code_redemptions.Create")
	if err != nil {
		return err
	}
	defer release()

	for _, existing := range r.store.state.redemptions {
		if existing.Code == redemption.Code && existing.Email == redemption.Email {
			return repositories.ErrDuplicate
		}
	}
	if redemption.ID.IsZero() {
		redemption.ID = primitive.NewObjectID()
	}
	r.store.state.redemptions = append(r.store.state.redemptions, *redemption)
	return nil
}

func (r *RedemptionRepository) Exists(ctx context.Context, code, email string) (bool, error) {
	release, err := r.store.acquire(ctx, "code_redemptions.Exists")
	if err != nil {
		return false, err
	}
	defer release()

	for _, existing := range r.store.state.redemptions {
		if existing.Code == code && existing.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *RedemptionRepository) FindByCode(ctx context.Context, code string) ([]*models.Redemption, error) {
	release, err := r.store.acquire(ctx, "code_redemptions.FindByCode")
	if err != nil {
		return nil, err
	}
	defer release()

	out := []*models.Redemption{}
	rs := r.store.state.redemptions
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].Code == code {
			rd := rs[i]
			out = append(out, &rd)
		}
	}
	return out, nil
}
