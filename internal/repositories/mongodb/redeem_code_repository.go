package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repositories.RedeemCodeRepository = (*RedeemCodeRepository)(nil)

// RedeemCodeRepository handles MongoDB operations for redeem codes
type RedeemCodeRepository struct {
	collection *mongo.Collection
}

// NewRedeemCodeRepository creates a new RedeemCodeRepository
func NewRedeemCodeRepository(db *mongo.Database) *RedeemCodeRepository {
	return &RedeemCodeRepository{
		collection: db.Collection(RedeemCodesCollection),
	}
}

// Create inserts a new code
func (r *RedeemCodeRepository) Create(ctx context.Context, code *models.RedeemCode) error {
	if code.ID.IsZero() {
		code.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, code)
	return translateError(err)
}

// FindByCode finds a code by its normalized value
func (r *RedeemCodeRepository) FindByCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	var rc models.RedeemCode
	if err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&rc); err != nil {
		return nil, translateError(err)
	}
	return &rc, nil
}

// FindAll lists codes, newest first
func (r *RedeemCodeRepository) FindAll(ctx context.Context, page, limit int) ([]*models.RedeemCode, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "code", Value: 1}})
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		findOptions.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var codes []*models.RedeemCode
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, translateError(err)
	}
	if codes == nil {
		codes = []*models.RedeemCode{}
	}
	return codes, nil
}

// IncrementUsage consumes one use with a single guarded update, so concurrent redemptions can
// never push usedCount past usageLimit.
func (r *RedeemCodeRepository) IncrementUsage(ctx context.Context, code string, now time.Time) error {
	filter := bson.M{
		"code":     code,
		"isActive": true,
		"$expr":    bson.M{"$lt": bson.A{"$usedCount", "$usageLimit"}},
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"usedCount": 1},
		"$set": bson.M{"updated_at": now},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.collection.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrConditionFailed
}

// Deactivate switches a code off; codes are never hard-deleted
func (r *RedeemCodeRepository) Deactivate(ctx context.Context, code string, at time.Time) (*models.RedeemCode, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"isActive": false, "updated_at": at}}

	var rc models.RedeemCode
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"code": code}, update, opts).Decode(&rc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &rc, nil
}

var _ repositories.RedemptionRepository = (*RedemptionRepository)(nil)

// RedemptionRepository handles MongoDB operations for code redemptions
type RedemptionRepository struct {
	collection *mongo.Collection
}

// NewRedemptionRepository creates a new RedemptionRepository
func NewRedemptionRepository(db *mongo.Database) *RedemptionRepository {
	return &RedemptionRepository{
		collection: db.Collection(RedemptionsCollection),
	}
}

// Create inserts a redemption; the unique (code, email) index rejects a second one
func (r *RedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	if redemption.ID.IsZero() {
		redemption.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, redemption)
	return translateError(err)
}

// Exists reports whether email has already redeemed code
func (r *RedemptionRepository) Exists(ctx context.Context, code, email string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"code": code, "email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, translateError(err)
	}
	return n > 0, nil
}

// FindByCode lists redemptions of a code, newest first
func (r *RedemptionRepository) FindByCode(ctx context.Context, code string) ([]*models.Redemption, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "redeemed_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"code": code}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var redemptions []*models.Redemption
	if err = cursor.All(ctx, &redemptions); err != nil {
		return nil, translateError(err)
	}
	if redemptions == nil {
		redemptions = []*models.Redemption{}
	}
	return redemptions, nil
}
