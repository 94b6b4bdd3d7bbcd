package memory

import (
	"context"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.PickupPointRepository = (*PickupPointRepository)(nil)
	_ repositories.ReviewRepository      = (*ReviewRepository)(nil)
	_ repositories.AdminUserRepository   = (*AdminUserRepository)(nil)
)

type PickupPointRepository struct {
	store *Store
}

func (r *PickupPointRepository) Create(ctx context.Context, point *models.PickupPoint) error {
	release, err := r.store.acquire(ctx, "pickup_points.Create")
	if err != nil {
		return err
	}
	defer release()

	if point.ID.IsZero() {
		point.ID = primitive.NewObjectID()
	}
	r.store.state.pickupPoints = append(r.store.state.pickupPoints, *point)
	return nil
}

func (r *PickupPointRepository) FindActive(ctx context.Context) ([]*models.PickupPoint, error) {
	return r.find(ctx, "pickup_points.FindActive", true)
}

func (r *PickupPointRepository) FindAll(ctx context.Context) ([]*models.PickupPoint, error) {
	return r.find(ctx, "pickup_points.FindAll", false)
}

func (r *PickupPointRepository) find(ctx context.Context, op string, activeOnly bool) ([]*models.PickupPoint, error) {
	release, err := r.store.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer release()

	out := []*models.PickupPoint{}
	for _, p := range r.store.state.pickupPoints {
		if activeOnly && !p.Active {
			continue
		}
		p := p
		out = append(out, &p)
	}
	return out, nil
}

func (r *PickupPointRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	release, err := r.store.acquire(ctx, "pickup_points.Delete")
	if err != nil {
		return err
	}
	defer release()

	points := r.store.state.pickupPoints
	for i := range points {
		if points[i].ID == id {
			r.store.state.pickupPoints = append(points[:i:i], points[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type ReviewRepository struct {
	store *Store
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	release, err := r.store.acquire(ctx, "reviews.Create")
	if err != nil {
		return err
	}
	defer release()

	for _, existing := range r.store.state.reviews {
		if existing.ProductID == review.ProductID && existing.Email == review.Email {
			return repositories.ErrDuplicate
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	r.store.state.reviews = append(r.store.state.reviews, *review)
	return nil
}

func (r *ReviewRepository) FindByProduct(ctx context.Context, productID string) ([]*models.Review, error) {
	release, err := r.store.acquire(ctx, "reviews.FindByProduct")
	if err != nil {
		return nil, err
	}
	defer release()

	out := []*models.Review{}
	rs := r.store.state.reviews
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i].ProductID == productID {
			rv := rs[i]
			out = append(out, &rv)
		}
	}
	return out, nil
}

type AdminUserRepository struct {
	store *Store
}

func (r *AdminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) error {
	release, err := r.store.acquire(ctx, "admin_users.Create")
	if err != nil {
		return err
	}
	defer release()

	if _, exists := r.store.state.admins[adminUser.Email]; exists {
		return repositories.ErrDuplicate
	}
	if adminUser.ID.IsZero() {
		adminUser.ID = primitive.NewObjectID()
	}
	r.store.state.admins[adminUser.Email] = *adminUser
	return nil
}

func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	release, err := r.store.acquire(ctx, "admin_users.FindByEmail")
	if err != nil {
		return nil, err
	}
	defer release()

	a, ok := r.store.state.admins[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &a, nil
}
