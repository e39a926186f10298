package models

import "time"

// Idempotency record statuses.
const (
	IdempotencyProcessing = "processing"
	IdempotencyCompleted  = "completed"
)

// IdempotencyRecord represents a processed external event or internal job
// invocation. A key is inserted exactly once and never deleted; a second
// attempt to process the same key returns the recorded outcome.
type IdempotencyRecord struct {
	Key         string     `bson:"key" json:"key"`
	Status      string     `bson:"status" json:"status"`
	Outcome     string     `bson:"outcome,omitempty" json:"outcome,omitempty"`
	FirstSeenAt time.Time  `bson:"first_seen_at" json:"first_seen_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
