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

var _ repositories.RewardRepository = (*RewardRepository)(nil)

// RewardRepository handles MongoDB operations for rewards and notifications
type RewardRepository struct {
	collection *mongo.Collection
}

// NewRewardRepository creates a new RewardRepository
func NewRewardRepository(db *mongo.Database) *RewardRepository {
	return &RewardRepository{
		collection: db.Collection(RewardsCollection),
	}
}

// Create inserts one reward
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	if reward.ID.IsZero() {
		reward.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, reward)
	return translateError(err)
}

// CreateMany inserts rewards unordered so one bad document does not stop the rest.
func (r *RewardRepository) CreateMany(ctx context.Context, rewards []*models.Reward) (repositories.BulkResult, error) {
	var result repositories.BulkResult
	if len(rewards) == 0 {
		return result, nil
	}

	docs := make([]interface{}, 0, len(rewards))
	for _, reward := range rewards {
		if reward.ID.IsZero() {
			reward.ID = primitive.NewObjectID()
		}
		docs = append(docs, reward)
	}

	res, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if res != nil {
		result.Written = len(res.InsertedIDs)
	}
	if err == nil {
		return result, nil
	}

	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return result, translateError(err)
	}

	var failed error
	result.Written = len(rewards) - len(bulkErr.WriteErrors)
	for _, we := range bulkErr.WriteErrors {
		if we.Code == 11000 {
			result.Duplicates++
			continue
		}
		if failed == nil {
			failed = we
		}
	}
	if failed != nil {
		return result, translateError(failed)
	}
	return result, nil
}

// FindByEmail lists the customer's unexpired rewards, newest first
func (r *RewardRepository) FindByEmail(ctx context.Context, email string, now time.Time) ([]*models.Reward, error) {
	filter := bson.M{
		"customerEmail": email,
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var rewards []*models.Reward
	if err = cursor.All(ctx, &rewards); err != nil {
		return nil, translateError(err)
	}
	if rewards == nil {
		rewards = []*models.Reward{}
	}
	return rewards, nil
}

// CountByDispatch counts rewards written by one dispatch
func (r *RewardRepository) CountByDispatch(ctx context.Context, dispatchID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"dispatchId": dispatchID})
	return n, translateError(err)
}

// MarkRead flips isRead on a reward owned by email
func (r *RewardRepository) MarkRead(ctx context.Context, id primitive.ObjectID, email string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "customerEmail": email},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
