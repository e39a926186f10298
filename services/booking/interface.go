package booking

import (
	"context"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"
	"homely/services/gateway"
	"homely/services/notification"
	"homely/services/policy"

	"go.uber.org/zap"
)

// CreateBookingInput carries the fields required to open a booking. Currency
// is mandatory and never defaulted; a missing currency is a data-entry bug we
// want surfaced, not masked.
type CreateBookingInput struct {
	CustomerID     string    `json:"customer_id"`
	ProfessionalID string    `json:"professional_id"`
	ServiceType    string    `json:"service_type"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	AmountDue      int64     `json:"amount_due"`
	AmountTip      int64     `json:"amount_tip"`
	Currency       string    `json:"currency"`
}

// BookingService is the state machine owning all write access to bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)

	// Webhook-driven transitions.
	ApplyPaymentAuthorized(ctx context.Context, bookingID string, amount int64, externalRef string) error
	ApplyPaymentCaptured(ctx context.Context, bookingID string, capturedAmount int64, externalRef string) error
	ApplyPaymentFailed(ctx context.Context, bookingID, externalRef string) error
	ApplyRefundProcessed(ctx context.Context, bookingID string, refundedAmount int64, externalRef string) error

	// Customer- and professional-initiated transitions.
	Cancel(ctx context.Context, bookingID, initiator string, now time.Time) (*policy.Decision, error)
	MarkServiceStarted(ctx context.Context, bookingID string) error
	MarkServiceCompleted(ctx context.Context, bookingID string, now time.Time) error
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo     ledgerRepo.BookingRepository
	Gateway  gateway.Client
	Notifier notification.NotificationService
	Logger   *zap.Logger
}
