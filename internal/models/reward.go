package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RewardType string

const (
	RewardCoins        RewardType = "coins"
	RewardDiscount     RewardType = "discount"
	RewardNotification RewardType = "notification"
	RewardRedeemCode   RewardType = "redeem_code"
)

// Reward is a notification, optionally carrying a coin or discount grant.
type Reward struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CustomerEmail string             `bson:"customerEmail" json:"customerEmail"`
	Type          RewardType         `bson:"type" json:"type"`
	Title         string             `bson:"title" json:"title"`
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	Value         int64              `bson:"value" json:"value"`
	IsRead        bool               `bson:"isRead" json:"isRead"`
	DispatchID    string             `bson:"dispatchId,omitempty" json:"dispatchId,omitempty"`
	ExpiresAt     *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// RewardPayload is what an admin sends to one or all customers.
type RewardPayload struct {
	Type       RewardType `json:"type" binding:"required"`
	Title      string     `json:"title" binding:"required"`
	Message    string     `json:"message"`
	Value      int64      `json:"value"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	DispatchID string     `json:"dispatchId"`
}

// DispatchResult reports a fan-out. Written counts rewards actually stored.
type DispatchResult struct {
	DispatchID string `json:"dispatchId"`
	Targeted   int    `json:"targeted"`
	Written    int    `json:"written"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}
