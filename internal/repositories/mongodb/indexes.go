package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CustomersCollection    = "customers"
	TransactionsCollection = "transactions"
	RedeemCodesCollection  = "redeem_codes"
	RedemptionsCollection  = "code_redemptions"
	RewardsCollection      = "rewards"
	PickupPointsCollection = "pickup_points"
	ReviewsCollection      = "reviews"
	AdminUsersCollection   = "admin_users"
)

// EnsureIndexes creates the indexes the repositories rely on. The unique indexes are the
// guards against duplicate customers, double-applied ledger requests and double redemptions.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CustomersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TransactionsCollection: {
			{
				Keys: bson.D{{Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		RedeemCodesCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RedemptionsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		RewardsCollection: {
			{Keys: bson.D{{Key: "customerEmail", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "dispatchId", Value: 1}, {Key: "customerEmail", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"dispatchId": bson.M{"$type": "string"}}),
			},
		},
		PickupPointsCollection: {
			{Keys: bson.D{{Key: "active", Value: 1}}},
		},
		ReviewsCollection: {
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		AdminUsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, translateError(err))
		}
	}
	return nil
}
