package ledgerRepo

import (
	"context"
	"fmt"
	"time"

	"homely/config"
	"homely/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLedgerRepo implements LedgerRepository using MongoDB.
type MongoLedgerRepo struct {
	bookingColl      *mongo.Collection
	payoutColl       *mongo.Collection
	runColl          *mongo.Collection
	idempotencyColl  *mongo.Collection
	lockColl         *mongo.Collection
	professionalColl *mongo.Collection
}

// NewMongoLedgerRepo creates a new LedgerRepository backed by MongoDB.
func NewMongoLedgerRepo() LedgerRepository {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	repo := &MongoLedgerRepo{
		bookingColl:      db.Collection("bookings"),
		payoutColl:       db.Collection("payouts"),
		runColl:          db.Collection("settlement_runs"),
		idempotencyColl:  db.Collection("idempotency_records"),
		lockColl:         db.Collection("settlement_locks"),
		professionalColl: db.Collection("professionals"),
	}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates the indexes that enforce identity and idempotency
// invariants and speed up the settlement queries.
func (r *MongoLedgerRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	if _, err := r.bookingColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "amount_captured", Value: 1}}},
		{Keys: bson.D{{Key: "professional_id", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	if _, err := r.payoutColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "professional_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "booking_ids", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create payout indexes: %w", err)
	}

	if _, err := r.runColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create run index: %w", err)
	}

	// The unique key index is what makes "a key is inserted exactly once" hold.
	if _, err := r.idempotencyColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create idempotency index: %w", err)
	}

	if _, err := r.professionalColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create professional index: %w", err)
	}

	return nil
}
