package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CodeType string

const (
	CodeTypeCoins    CodeType = "coins"
	CodeTypeDiscount CodeType = "discount"
)

// RedeemCode is a promotional code. UsedCount never exceeds UsageLimit.
type RedeemCode struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code        string             `bson:"code" json:"code"`
	Type        CodeType           `bson:"type" json:"type"`
	Value       int64              `bson:"value" json:"value"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	UsageLimit  int64              `bson:"usageLimit" json:"usageLimit"`
	UsedCount   int64              `bson:"usedCount" json:"usedCount"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	ExpiresAt   *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedBy   string             `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Expired reports whether the code is past its expiry. A code without expiry never expires.
func (c *RedeemCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// Exhausted reports whether every use has been consumed.
func (c *RedeemCode) Exhausted() bool {
	return c.UsedCount >= c.UsageLimit
}

// NormalizeCode uppercases and trims a code as entered by a customer or admin.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redemption records one customer's use of a code. (Code, Email) is unique.
type Redemption struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	Code          string              `bson:"code" json:"code"`
	Email         string              `bson:"email" json:"email"`
	CodeType      CodeType            `bson:"codeType" json:"codeType"`
	Value         int64               `bson:"value" json:"value"`
	TransactionID *primitive.ObjectID `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	RedeemedAt    time.Time           `bson:"redeemed_at" json:"redeemed_at"`
}

// RedemptionResult is returned to the caller of a successful redemption.
type RedemptionResult struct {
	Code        string       `json:"code"`
	Type        CodeType     `json:"type"`
	Value       int64        `json:"value"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	CoinBalance *int64       `json:"coinBalance,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
	RedeemedAt  time.Time    `json:"redeemed_at"`
}
