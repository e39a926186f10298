package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateBooking opens a new booking in pending status.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, fmt.Errorf("invalid booking request: %w", err)
	}

	b := &models.Booking{
		ID:             uuid.New().String(),
		CustomerID:     input.CustomerID,
		ProfessionalID: input.ProfessionalID,
		ServiceType:    input.ServiceType,
		ScheduledStart: input.ScheduledStart,
		ScheduledEnd:   input.ScheduledEnd,
		AmountDue:      input.AmountDue,
		AmountTip:      input.AmountTip,
		Currency:       input.Currency,
		Status:         models.BookingPending,
	}

	if err := s.Repo.CreateBooking(b); err != nil {
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	s.Logger.Info("Booking created",
		zap.String("bookingId", b.ID),
		zap.String("customerId", b.CustomerID),
		zap.Int64("amountDue", b.AmountDue),
	)
	return b, nil
}

// GetBooking retrieves one booking.
func (s *DefaultBookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := s.Repo.GetBookingByID(id)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrNotFound) {
			return nil, NewTransitionError(CodeNotFound, fmt.Sprintf("booking %s not found", id))
		}
		return nil, err
	}
	return b, nil
}

func validateCreateInput(input CreateBookingInput) error {
	if input.CustomerID == "" {
		return errors.New("missing customer ID")
	}
	if input.ProfessionalID == "" {
		return errors.New("missing professional ID")
	}
	if input.Currency == "" {
		return errors.New("missing currency")
	}
	if input.AmountDue <= 0 {
		return errors.New("invalid booking amount")
	}
	if input.AmountTip < 0 {
		return errors.New("invalid tip amount")
	}
	if input.ScheduledStart.IsZero() || input.ScheduledEnd.IsZero() {
		return errors.New("missing scheduled time window")
	}
	if !input.ScheduledEnd.After(input.ScheduledStart) {
		return errors.New("scheduled end must be after start")
	}
	if input.ScheduledStart.Before(time.Now()) {
		return errors.New("scheduled start is in the past")
	}
	return nil
}
