package models

import "time"

// Professional is the read-only slice of the professional profile this core
// needs: the payee reference used when disbursing earnings.
type Professional struct {
	ID              string    `bson:"id" json:"id"`
	DisplayName     string    `bson:"display_name" json:"display_name"`
	StripeAccountID string    `bson:"stripeAccountID,omitempty" json:"stripeAccountID,omitempty"`
	Currency        string    `bson:"currency" json:"currency"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
