package memory

import (
	"context"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.RewardRepository = (*RewardRepository)(nil)

// RewardRepository stores rewards; (dispatchId, email) is unique when dispatchId is set.
type RewardRepository struct {
	store *Store
}

func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	release, err := r.store.acquire(ctx, "rewards.Create")
	if err != nil {
		return err
	}
	defer release()

	return r.insert(reward)
}

func (r *RewardRepository) CreateMany(ctx context.Context, rewards []*models.Reward) (repositories.BulkResult, error) {
	var result repositories.BulkResult
	release, err := r.store.acquire(ctx, "rewards.CreateMany")
	if err != nil {
		return result, err
	}
	defer release()

	for _, reward := range rewards {
		if err := r.store.check(ctx, "rewards.CreateMany.insert"); err != nil {
			return result, err
		}
		switch err := r.insert(reward); err {
		case nil:
			result.Written++
		case repositories.ErrDuplicate:
			result.Duplicates++
		default:
			return result, err
		}
	}
	return result, nil
}

// insert adds one reward. Caller holds the lock.
func (r *RewardRepository) insert(reward *models.Reward) error {
	if reward.DispatchID != "" {
		for _, existing := range r.store.state.rewards {
			if existing.DispatchID == reward.DispatchID && existing.CustomerEmail == reward.CustomerEmail {
				return repositories.ErrDuplicate
			}
		}
	}
	if reward.ID.IsZero() {
		reward.ID = primitive.NewObjectID()
	}
	r.store.state.rewards = append(r.store.state.rewards, *reward)
	return nil
}

func (r *RewardRepository) FindByEmail(ctx context.Context, email string, now time.Time) ([]*models.Reward, error) {
	release, err := r.store.acquire(ctx, "rewards.FindByEmail")
	if err != nil {
		return nil, err
	}
	defer release()

	out := []*models.Reward{}
	rs := r.store.state.rewards
	for i := len(rs) - 1; i >= 0; i-- {
		rw := rs[i]
		if rw.CustomerEmail != email {
			continue
		}
		if rw.ExpiresAt != nil && !now.Before(*rw.ExpiresAt) {
			continue
		}
		out = append(out, &rw)
	}
	return out, nil
}

func (r *RewardRepository) CountByDispatch(ctx context.Context, dispatchID string) (int64, error) {
	release, err := r.store.acquire(ctx, "rewards.CountByDispatch")
	if err != nil {
		return 0, err
	}
	defer release()

	var n int64
	for _, rw := range r.store.state.rewards {
		if rw.DispatchID == dispatchID {
			n++
		}
	}
	return n, nil
}

func (r *RewardRepository) MarkRead(ctx context.Context, id primitive.ObjectID, email string) error {
	release, err := r.store.acquire(ctx, "rewards.MarkRead")
	if err != nil {
		return err
	}
	defer release()

	for i := range r.store.state.rewards {
		rw := &r.store.state.rewards[i]
		if rw.ID == id && rw.CustomerEmail == email {
			rw.IsRead = true
			return nil
		}
	}
	return repositories.ErrNotFound
}
