package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CustomerRepository implements the interface
var _ repositories.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository handles MongoDB operations for Customer
type CustomerRepository struct {
	collection *mongo.Collection
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *mongo.Database) *CustomerRepository {
	return &CustomerRepository{
		collection: db.Collection(CustomersCollection),
	}
}

// Touch upserts the customer on login
func (r *CustomerRepository) Touch(ctx context.Context, email, name string, at time.Time) (*models.Customer, error) {
	update := bson.M{
		"$set": bson.M{"last_login_at": at, "updated_at": at},
		"$setOnInsert": bson.M{
			"email":       email,
			"name":        name,
			"coinBalance": int64(0),
			"created_at":  at,
		},
	}
	return r.upsert(ctx, email, update)
}

// SaveProfile upserts the profile fields
func (r *CustomerRepository) SaveProfile(ctx context.Context, email string, profile models.CustomerProfile, at time.Time) (*models.Customer, error) {
	update := bson.M{
		"$set": bson.M{
			"name":       profile.Name,
			"phone":      profile.Phone,
			"address":    profile.Address,
			"updated_at": at,
		},
		"$setOnInsert": bson.M{
			"email":       email,
			"coinBalance": int64(0),
			"created_at":  at,
		},
	}
	return r.upsert(ctx, email, update)
}

// upsert retries once when a concurrent first login wins the unique email index.
func (r *CustomerRepository) upsert(ctx context.Context, email string, update bson.M) (*models.Customer, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var customer models.Customer
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&customer)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&customer)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

// FindByEmail finds a customer by email
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&customer); err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

// FindAll retrieves customers ordered by email
func (r *CustomerRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Customer, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "email", Value: 1}})
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

	var customers []*models.Customer
	if err = cursor.All(ctx, &customers); err != nil {
		return nil, translateError(err)
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	return customers, nil
}

// ListEmails returns every customer email
func (r *CustomerRepository) ListEmails(ctx context.Context) ([]string, error) {
	findOptions := options.Find().
		SetProjection(bson.M{"email": 1, "_id": 0}).
		SetSort(bson.D{{Key: "email", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Email string `bson:"email"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err)
	}
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}
	return emails, nil
}

// Count returns the number of customers
func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	return n, translateError(err)
}

// ApplyCoinDelta increments the balance in a single conditional update
func (r *CustomerRepository) ApplyCoinDelta(ctx context.Context, email string, delta int64, allowNegative bool, at time.Time) (int64, error) {
	filter := bson.M{"email": email}
	if !allowNegative && delta < 0 {
		filter["coinBalance"] = bson.M{"$gte": -delta}
	}
	update := bson.M{
		"$inc": bson.M{"coinBalance": delta},
		"$set": bson.M{"updated_at": at},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var customer models.Customer
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&customer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, r.missOrCondition(ctx, email)
	}
	if err != nil {
		return 0, translateError(err)
	}
	return customer.CoinBalance, nil
}

func (r *CustomerRepository) missOrCondition(ctx context.Context, email string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return translateError(err)
	}
	if n == 0 {
		return repositories.ErrNotFound
	}
	return repositories.ErrConditionFailed
}
