package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

const TransactionStatusCompleted = "completed"

// Transaction sources
const (
	SourceWallet     = "wallet"
	SourceRedeemCode = "redeem_code"
	SourceReward     = "reward"
	SourceAdmin      = "admin"
)

// Transaction is an append-only ledger record. Coins is always the positive magnitude; Type
// carries the sign.
type Transaction struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email          string             `bson:"email" json:"email"`
	Type           TransactionType    `bson:"type" json:"type"`
	Description    string             `bson:"description" json:"description"`
	Amount         decimal.Decimal    `bson:"amount" json:"amount"`
	Coins          int64              `bson:"coins" json:"coins"`
	PaymentMethod  string             `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Status         string             `bson:"status" json:"status"`
	Source         string             `bson:"source" json:"source"`
	Reference      string             `bson:"reference,omitempty" json:"reference,omitempty"`
	IdempotencyKey string             `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}

// SignedCoins returns the balance delta this transaction applied.
func (t Transaction) SignedCoins() int64 {
	if t.Type == TransactionDebit {
		return -t.Coins
	}
	return t.Coins
}
