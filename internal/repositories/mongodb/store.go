package mongodb

import (
	"github.com/ArowuTest/storefront-coins/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewStore wires every MongoDB repository against db.
func NewStore(client *mongo.Client, db *mongo.Database) *repositories.Store {
	tx := NewTxRunner(client)
	return &repositories.Store{
		Customers:    NewCustomerRepository(db),
		Transactions: NewTransactionRepository(db),
		RedeemCodes:  NewRedeemCodeRepository(db),
		Redemptions:  NewRedemptionRepository(db),
		Rewards:      NewRewardRepository(db),
		PickupPoints: NewPickupPointRepository(db),
		Reviews:      NewReviewRepository(db),
		AdminUsers:   NewAdminUserRepository(db),
		Tx:           tx,
		Pinger:       tx,
	}
}
