// File: database/repository/ledger/bookingMongoCrud.go
package ledgerRepo

import (
	"fmt"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CreateBooking inserts a new booking document.
func (r *MongoLedgerRepo) CreateBooking(b *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := r.bookingColl.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBookingByID retrieves a booking by its unique ID.
func (r *MongoLedgerRepo) GetBookingByID(id string) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var b models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return &b, nil
}

// UpdateBookingCAS applies one state transition as a single conditional
// update keyed by (id, expected status). Zero matched documents means the
// booking moved under us; the caller decides whether the event is stale.
func (r *MongoLedgerRepo) UpdateBookingCAS(id string, expected, newStatus models.BookingStatus, fields bson.M) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	set := bson.M{
		"status":     newStatus,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		set[k] = v
	}

	filter := bson.M{"id": id, "status": expected, "settled": false}
	result, err := r.bookingColl.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update booking with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNoMatch
	}
	return nil
}

// EligibleBookings returns completed, captured bookings not tagged by any
// non-failed payout. Bookings held by a still-pending payout from a crashed
// run are excluded too, so they are never grouped twice.
func (r *MongoLedgerRepo) EligibleBookings() ([]models.Booking, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	excluded, err := r.payoutColl.Distinct(ctx, "booking_ids", bson.M{
		"status": bson.M{"$in": []models.PayoutStatus{
			models.PayoutPending, models.PayoutInTransit, models.PayoutPaid,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect paid-out booking ids: %w", err)
	}

	filter := bson.M{
		"status":          models.BookingCompleted,
		"amount_captured": bson.M{"$gt": 0},
	}
	if len(excluded) > 0 {
		filter["id"] = bson.M{"$nin": excluded}
	}

	cursor, err := r.bookingColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// SetBookingsSettled flags terminal bookings as included in a settled payout,
// or clears the flag when the payout's transfer is later reversed.
func (r *MongoLedgerRepo) SetBookingsSettled(ids []string, settled bool) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.bookingColl.UpdateMany(ctx,
		bson.M{"id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"settled": settled, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark bookings settled: %w", err)
	}
	return nil
}
