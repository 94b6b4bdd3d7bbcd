package mongodb

import (
	"context"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	_ repositories.PickupPointRepository = (*PickupPointRepository)(nil)
	_ repositories.ReviewRepository      = (*ReviewRepository)(nil)
	_ repositories.AdminUserRepository   = (*AdminUserRepository)(nil)
)

// PickupPointRepository handles MongoDB operations for pickup points
type PickupPointRepository struct {
	collection *mongo.Collection
}

// NewPickupPointRepository creates a new PickupPointRepository
func NewPickupPointRepository(db *mongo.Database) *PickupPointRepository {
	return &PickupPointRepository{collection: db.Collection(PickupPointsCollection)}
}

func (r *PickupPointRepository) Create(ctx context.Context, point *models.PickupPoint) error {
	if point.ID.IsZero() {
		point.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, point)
	return translateError(err)
}

func (r *PickupPointRepository) FindActive(ctx context.Context) ([]*models.PickupPoint, error) {
	return r.find(ctx, bson.M{"active": true})
}

func (r *PickupPointRepository) FindAll(ctx context.Context) ([]*models.PickupPoint, error) {
	return r.find(ctx, bson.M{})
}

func (r *PickupPointRepository) find(ctx context.Context, filter bson.M) ([]*models.PickupPoint, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var points []*models.PickupPoint
	if err = cursor.All(ctx, &points); err != nil {
		return nil, translateError(err)
	}
	if points == nil {
		points = []*models.PickupPoint{}
	}
	return points, nil
}

func (r *PickupPointRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// ReviewRepository handles MongoDB operations for product reviews
type ReviewRepository struct {
	collection *mongo.Collection
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{collection: db.Collection(ReviewsCollection)}
}

func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, review)
	return translateError(err)
}

func (r *ReviewRepository) FindByProduct(ctx context.Context, productID string) ([]*models.Review, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"productId": productID}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var reviews []*models.Review
	if err = cursor.All(ctx, &reviews); err != nil {
		return nil, translateError(err)
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}

// AdminUserRepository handles admin console accounts (separate from storefront customers)
type AdminUserRepository struct {
	collection *mongo.Collection
}

// NewAdminUserRepository creates a new repository for admin users
func NewAdminUserRepository(db *mongo.Database) *AdminUserRepository {
	return &AdminUserRepository{collection: db.Collection(AdminUsersCollection)}
}

// Create inserts a new admin user into the database
func (r *AdminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) error {
	if adminUser.ID.IsZero() {
		adminUser.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, adminUser)
	return translateError(err)
}

// FindByEmail finds an admin user by their email address
func (r *AdminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var adminUser models.AdminUser
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&adminUser); err != nil {
		return nil, translateError(err)
	}
	return &adminUser, nil
}
