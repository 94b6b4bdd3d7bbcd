package models

import "time"

// RedeemRequest is a customer's code redemption.
type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateRedeemCodeRequest is an admin request to mint a code.
type CreateRedeemCodeRequest struct {
	Code        string     `json:"code" binding:"required"`
	Type        CodeType   `json:"type" binding:"required,oneof=coins discount"`
	Value       int64      `json:"value" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	UsageLimit  int64      `json:"usageLimit" binding:"required"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// SendRewardRequest targets one customer by email or every customer with "all".
type SendRewardRequest struct {
	Target string `json:"target" binding:"required"`
	RewardPayload
}

// CreatePickupPointRequest is an admin request to add a pickup point.
type CreatePickupPointRequest struct {
	Name      string   `json:"name" binding:"required"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// CreateReviewRequest is a customer's review of a product.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}
