// File: database/repository/ledger/lockMongoCrud.go
package ledgerRepo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TryAcquireLock attempts a conditional insert-or-update of the lock row.
// It succeeds only when no unexpired holder exists; an expired lock counts
// as abandoned and is reclaimed. Never blocks or polls.
func (r *MongoLedgerRepo) TryAcquireLock(name, holder string, maxHold time.Duration) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{
		"_id":        name,
		"expires_at": bson.M{"$lt": now},
	}
	update := bson.M{"$set": bson.M{
		"holder_id":   holder,
		"acquired_at": now,
		"expires_at":  now.Add(maxHold),
	}}

	result, err := r.lockColl.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// An upsert racing an unexpired holder hits the _id unique constraint.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return false, nil
	}
	return true, nil
}

// ReleaseLock deletes the lock row, but only for its current holder.
func (r *MongoLedgerRepo) ReleaseLock(name, holder string) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.lockColl.DeleteOne(ctx, bson.M{"_id": name, "holder_id": holder}); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
