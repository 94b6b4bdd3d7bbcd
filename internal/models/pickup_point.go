package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PickupPoint is a delivery/collection location. Coordinates may be missing on legacy records.
type PickupPoint struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Address   string             `bson:"address,omitempty" json:"address,omitempty"`
	Latitude  *float64           `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64           `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// RankedPickupPoint is a pickup point with its distance from the customer.
type RankedPickupPoint struct {
	PickupPoint
	DistanceKm *float64 `json:"distanceKm"`
}

// NearestPickupPoints is the response of the eligibility lookup.
type NearestPickupPoints struct {
	Points            []RankedPickupPoint `json:"points"`
	NearestDistanceKm *float64            `json:"nearestDistanceKm"`
	CanDeliver        bool                `json:"canDeliver"`
	ThresholdKm       float64             `json:"thresholdKm"`
}
