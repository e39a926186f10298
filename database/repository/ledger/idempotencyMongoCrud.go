// File: database/repository/ledger/idempotencyMongoCrud.go
package ledgerRepo

import (
	"fmt"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertIdempotencyRecord inserts the record for a first-seen key. The unique
// index on the key turns redelivery into ErrDuplicate.
func (r *MongoLedgerRepo) InsertIdempotencyRecord(rec *models.IdempotencyRecord) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if rec.FirstSeenAt.IsZero() {
		rec.FirstSeenAt = time.Now()
	}

	if _, err := r.idempotencyColl.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert idempotency record: %w", err)
	}
	return nil
}

// GetIdempotencyRecord fetches the record for a key.
func (r *MongoLedgerRepo) GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var rec models.IdempotencyRecord
	if err := r.idempotencyColl.FindOne(ctx, bson.M{"key": key}).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch idempotency record %s: %w", key, err)
	}
	return &rec, nil
}

// FinalizeIdempotencyRecord records the outcome after the state-machine write
// succeeded. Records are never deleted; they are the replay-safety audit trail.
func (r *MongoLedgerRepo) FinalizeIdempotencyRecord(key, outcome string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.idempotencyColl.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{
			"status":       models.IdempotencyCompleted,
			"outcome":      outcome,
			"completed_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to finalize idempotency record %s: %w", key, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIdempotencyByOutcome returns finalized records with the given outcome,
// newest first.
func (r *MongoLedgerRepo) ListIdempotencyByOutcome(outcome string) ([]models.IdempotencyRecord, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "first_seen_at", Value: -1}})
	cursor, err := r.idempotencyColl.Find(ctx, bson.M{"outcome": outcome}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency records: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []models.IdempotencyRecord
	for cursor.Next(ctx) {
		var rec models.IdempotencyRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
