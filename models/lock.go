package models

import "time"

// SettlementLock represents an advisory lock row preventing concurrent
// settlement runs across process instances. A lock past ExpiresAt counts as
// abandoned and may be reclaimed by any holder.
type SettlementLock struct {
	Name       string    `bson:"_id" json:"name"`
	HolderID   string    `bson:"holder_id" json:"holder_id"`
	AcquiredAt time.Time `bson:"acquired_at" json:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
}
