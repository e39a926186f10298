// File: database/repository/ledger/payoutMongoCrud.go
package ledgerRepo

import (
	"fmt"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreatePayout inserts a new payout document in pending status.
func (r *MongoLedgerRepo) CreatePayout(p *models.Payout) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := r.payoutColl.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create payout: %w", err)
	}
	return nil
}

// GetPayoutByID retrieves a payout by its unique ID.
func (r *MongoLedgerRepo) GetPayoutByID(id string) (*models.Payout, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var p models.Payout
	if err := r.payoutColl.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch payout with id %s: %w", id, err)
	}
	return &p, nil
}

// UpdatePayoutCAS moves a payout between disbursement states conditionally.
func (r *MongoLedgerRepo) UpdatePayoutCAS(id string, expected, newStatus models.PayoutStatus, fields bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{
		"status":     newStatus,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		set[k] = v
	}

	result, err := r.payoutColl.UpdateOne(ctx,
		bson.M{"id": id, "status": expected},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update payout with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNoMatch
	}
	return nil
}

// ListPayoutsByProfessional returns all payouts for one professional, newest first.
func (r *MongoLedgerRepo) ListPayoutsByProfessional(professionalID string) ([]models.Payout, error) {
	return r.listPayouts(bson.M{"professional_id": professionalID})
}

// ListPayoutsByStatus returns all payouts in the given status.
func (r *MongoLedgerRepo) ListPayoutsByStatus(status models.PayoutStatus) ([]models.Payout, error) {
	return r.listPayouts(bson.M{"status": status})
}

func (r *MongoLedgerRepo) listPayouts(filter bson.M) ([]models.Payout, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	cursor, err := r.payoutColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer cursor.Close(ctx)

	var payouts []models.Payout
	for cursor.Next(ctx) {
		var p models.Payout
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode payout: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, nil
}

// CreateRun inserts a settlement run record.
func (r *MongoLedgerRepo) CreateRun(run *models.SettlementRun) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	if _, err := r.runColl.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to create settlement run: %w", err)
	}
	return nil
}

// UpdateRun applies field updates to a settlement run record.
func (r *MongoLedgerRepo) UpdateRun(id string, fields bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	result, err := r.runColl.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update settlement run %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRunByID retrieves a settlement run by its unique ID.
func (r *MongoLedgerRepo) GetRunByID(id string) (*models.SettlementRun, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var run models.SettlementRun
	if err := r.runColl.FindOne(ctx, bson.M{"id": id}).Decode(&run); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch settlement run %s: %w", id, err)
	}
	return &run, nil
}
