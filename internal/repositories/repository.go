package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/storefront-coins/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when a lookup or targeted update matches no document.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConditionFailed is returned when a conditional update's guard did not hold.
	ErrConditionFailed = errors.New("update condition not met")
	// ErrStoreUnavailable is returned when the store cannot be reached or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// TxRunner runs a function as a single atomic unit against the store. Repository calls made
// with the ctx handed to fn take part in the unit. A call made with a ctx that is already inside
// a unit joins it instead of starting a new one.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Pinger checks store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CustomerRepository defines the interface for customer data operations
type CustomerRepository interface {
	// Touch records a login, creating the customer with a zero balance if absent.
	Touch(ctx context.Context, email, name string, at time.Time) (*models.Customer, error)
	// SaveProfile sets the profile fields, creating the customer if absent.
	SaveProfile(ctx context.Context, email string, profile models.CustomerProfile, at time.Time) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.Customer, error)
	ListEmails(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
	// ApplyCoinDelta atomically adds delta to the balance and returns the new balance. When
	// allowNegative is false a delta that would take the balance below zero fails with
	// ErrConditionFailed. at stamps updatedAt.
	ApplyCoinDelta(ctx context.Context, email string, delta int64, allowNegative bool, at time.Time) (int64, error)
}

// TransactionRepository defines the interface for ledger transaction operations
type TransactionRepository interface {
	// Create inserts an immutable transaction. A repeated idempotency key yields ErrDuplicate.
	Create(ctx context.Context, tx *models.Transaction) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Transaction, error)
	// FindByEmail returns newest first. limit <= 0 returns all.
	FindByEmail(ctx context.Context, email string, limit int) ([]*models.Transaction, error)
	// SumCoins returns the sum of signed coins and the number of transactions for email.
	SumCoins(ctx context.Context, email string) (int64, int, error)
}

// RedeemCodeRepository defines the interface for redeem code operations
type RedeemCodeRepository interface {
	Create(ctx context.Context, code *models.RedeemCode) error
	FindByCode(ctx context.Context, code string) (*models.RedeemCode, error)
	FindAll(ctx context.Context, page, limit int) ([]*models.RedeemCode, error)
	// IncrementUsage adds one use iff the code is active, unexpired at now and below its
	// usage limit. Otherwise it fails with ErrConditionFailed (or ErrNotFound).
	IncrementUsage(ctx context.Context, code string, now time.Time) error
	Deactivate(ctx context.Context, code string, at time.Time) (*models.RedeemCode, error)
}

// RedemptionRepository defines the interface for code redemption records
type RedemptionRepository interface {
	// Create inserts a redemption. A second redemption of the same (code, email) yields ErrDuplicate.
	Create(ctx context.Context, redemption *models.Redemption) error
	Exists(ctx context.Context, code, email string) (bool, error)
	FindByCode(ctx context.Context, code string) ([]*models.Redemption, error)
}

// BulkResult reports a multi-document insert.
type BulkResult struct {
	Written    int
	Duplicates int
}

// RewardRepository defines the interface for reward/notification operations
type RewardRepository interface {
	Create(ctx context.Context, reward *models.Reward) error
	// CreateMany inserts rewards independently. Duplicates are counted, not failed. The error
	// reports any other failure; the result still counts what was written.
	CreateMany(ctx context.Context, rewards []*models.Reward) (BulkResult, error)
	// FindByEmail returns newest first, skipping rewards expired at now.
	FindByEmail(ctx context.Context, email string, now time.Time) ([]*models.Reward, error)
	CountByDispatch(ctx context.Context, dispatchID string) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, email string) error
}

// PickupPointRepository defines the interface for pickup point operations
type PickupPointRepository interface {
	Create(ctx context.Context, point *models.PickupPoint) error
	FindActive(ctx context.Context) ([]*models.PickupPoint, error)
	FindAll(ctx context.Context) ([]*models.PickupPoint, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ReviewRepository defines the interface for product review operations
type ReviewRepository interface {
	// Create inserts a review. A second review of the same product by the same email yields ErrDuplicate.
	Create(ctx context.Context, review *models.Review) error
	FindByProduct(ctx context.Context, productID string) ([]*models.Review, error)
}

// AdminUserRepository defines the interface for admin user data operations
type AdminUserRepository interface {
	Create(ctx context.Context, adminUser *models.AdminUser) error
	FindByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Store bundles every repository of one backing store with its transaction runner.
type Store struct {
	Customers    CustomerRepository
	Transactions TransactionRepository
	RedeemCodes  RedeemCodeRepository
	Redemptions  RedemptionRepository
	Rewards      RewardRepository
	PickupPoints PickupPointRepository
	Reviews      ReviewRepository
	AdminUsers   AdminUserRepository
	Tx           TxRunner
	Pinger       Pinger
}
