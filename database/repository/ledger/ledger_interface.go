package ledgerRepo

import (
	"errors"
	"time"

	"homely/models"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	// ErrNoMatch is returned by conditional updates when no row matched the
	// expected status; callers surface it as a concurrent modification.
	ErrNoMatch = errors.New("conditional update matched no document")
	// ErrDuplicate is returned when a unique index rejects an insert.
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
)

// BookingRepository provides transactional access to booking records.
type BookingRepository interface {
	CreateBooking(b *models.Booking) error
	GetBookingByID(id string) (*models.Booking, error)
	// UpdateBookingCAS applies a single conditional update keyed by
	// (id, expected status). Returns ErrNoMatch if the booking is no longer
	// in the expected status.
	UpdateBookingCAS(id string, expected, newStatus models.BookingStatus, fields bson.M) error
	// EligibleBookings returns completed bookings with captured > 0 that are
	// not tagged by any pending, in-transit or paid payout.
	EligibleBookings() ([]models.Booking, error)
	SetBookingsSettled(ids []string, settled bool) error
}

// PayoutRepository provides access to payout records.
type PayoutRepository interface {
	CreatePayout(p *models.Payout) error
	GetPayoutByID(id string) (*models.Payout, error)
	UpdatePayoutCAS(id string, expected, newStatus models.PayoutStatus, fields bson.M) error
	ListPayoutsByProfessional(professionalID string) ([]models.Payout, error)
	ListPayoutsByStatus(status models.PayoutStatus) ([]models.Payout, error)
}

// RunRepository persists settlement run records for audit and dashboards.
type RunRepository interface {
	CreateRun(r *models.SettlementRun) error
	UpdateRun(id string, fields bson.M) error
	GetRunByID(id string) (*models.SettlementRun, error)
}

// IdempotencyRepository is the durable set backing the idempotency guard.
type IdempotencyRepository interface {
	// InsertIdempotencyRecord inserts the record, returning ErrDuplicate if
	// the key was already recorded.
	InsertIdempotencyRecord(rec *models.IdempotencyRecord) error
	GetIdempotencyRecord(key string) (*models.IdempotencyRecord, error)
	FinalizeIdempotencyRecord(key, outcome string) error
	// ListIdempotencyByOutcome returns finalized records with the given
	// outcome, newest first. Backs the operator review of escalated events.
	ListIdempotencyByOutcome(outcome string) ([]models.IdempotencyRecord, error)
}

// LockRepository backs the distributed settlement lock with a single
// atomically-updated row per lock name.
type LockRepository interface {
	TryAcquireLock(name, holder string, maxHold time.Duration) (bool, error)
	ReleaseLock(name, holder string) error
}

// ProfessionalRepository exposes the read-only professional lookup this core
// needs for disbursement.
type ProfessionalRepository interface {
	GetProfessionalByID(id string) (*models.Professional, error)
}

// LedgerRepository is the full store boundary; no component issues queries
// outside it.
type LedgerRepository interface {
	BookingRepository
	PayoutRepository
	RunRepository
	IdempotencyRepository
	LockRepository
	ProfessionalRepository
}
