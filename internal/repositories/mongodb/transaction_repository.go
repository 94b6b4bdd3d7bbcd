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

// Compile-time check to ensure TransactionRepository implements the interface
var _ repositories.TransactionRepository = (*TransactionRepository)(nil)

// TransactionRepository handles MongoDB operations for ledger transactions
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection(TransactionsCollection),
	}
}

// Create inserts a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, tx)
	return translateError(err)
}

// FindByIdempotencyKey finds the transaction written for key
func (r *TransactionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error) {
	if key == "" {
		return nil, repositories.ErrNotFound
	}
	var tx models.Transaction
	if err := r.collection.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&tx); err != nil {
		return nil, translateError(err)
	}
	return &tx, nil
}

// FindByEmail finds transactions for a customer, newest first
func (r *TransactionRepository) FindByEmail(ctx context.Context, email string, limit int) ([]*models.Transaction, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"email": email}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var transactions []*models.Transaction
	if err = cursor.All(ctx, &transactions); err != nil {
		return nil, translateError(err)
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	return transactions, nil
}

// SumCoins totals the signed coins of a customer's transactions
func (r *TransactionRepository) SumCoins(ctx context.Context, email string) (int64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"email": email}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"total": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", string(models.TransactionDebit)}},
				bson.M{"$multiply": bson.A{"$coins", -1}},
				"$coins",
			}}},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, translateError(err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
		Count int   `bson:"count"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return 0, 0, translateError(err)
		}
		return 0, 0, nil
	}
	if err := cursor.Decode(&result); err != nil {
		return 0, 0, translateError(err)
	}
	return result.Total, result.Count, nil
}
