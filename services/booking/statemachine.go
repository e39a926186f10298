package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"
	"homely/services/policy"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Every transition is applied as one conditional update keyed by
// (bookingId, observed status). A lost race surfaces as
// concurrentModification and the caller refetches to decide whether the
// event is now redundant; no external locking is involved.

// ApplyPaymentAuthorized records a gateway authorization. Valid only from pending.
func (s *DefaultBookingService) ApplyPaymentAuthorized(ctx context.Context, bookingID string, amount int64, externalRef string) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingPending {
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("authorization not valid from %s", b.Status))
	}
	// Zero tolerance: the authorized amount must equal the quoted price.
	if amount != b.AmountDue {
		return NewTransitionError(CodeAmountMismatch,
			fmt.Sprintf("authorized %d does not match expected %d", amount, b.AmountDue))
	}

	err = s.casUpdate(bookingID, b.Status, models.BookingAuthorized, bson.M{
		"amount_authorized":  amount,
		"payment_intent_ref": externalRef,
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Payment authorized",
		zap.String("bookingId", bookingID),
		zap.Int64("amount", amount),
		zap.String("externalRef", externalRef),
	)
	s.notify(ctx, bookingID, "payment_authorized")
	return nil
}

// ApplyPaymentCaptured records a capture. A capture alone moves the booking
// to confirmed; combined with a service-completion signal it completes the
// booking and makes it eligible for the next settlement run.
func (s *DefaultBookingService) ApplyPaymentCaptured(ctx context.Context, bookingID string, capturedAmount int64, externalRef string) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}

	switch b.Status {
	case models.BookingAuthorized, models.BookingConfirmed, models.BookingInProgress:
	default:
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("capture not valid from %s", b.Status))
	}
	// captured <= authorized must hold prior to final settlement.
	if b.AmountAuthorized > 0 && capturedAmount > b.AmountAuthorized {
		return NewTransitionError(CodeAmountMismatch,
			fmt.Sprintf("captured %d exceeds authorized %d", capturedAmount, b.AmountAuthorized))
	}

	fields := bson.M{
		"amount_captured":    capturedAmount,
		"payment_intent_ref": externalRef,
	}

	target := b.Status
	switch {
	case b.ServiceCompletedAt != nil:
		target = models.BookingCompleted
		now := time.Now()
		fields["completed_at"] = now
		fields["amount_final"] = capturedAmount + b.AmountTip - b.AmountRefunded
	case b.Status == models.BookingAuthorized:
		target = models.BookingConfirmed
	}
	// A capture landing while the service runs stays in_progress; completion
	// is reported separately by the professional.

	if err := s.casUpdate(bookingID, b.Status, target, fields); err != nil {
		return err
	}

	s.Logger.Info("Payment captured",
		zap.String("bookingId", bookingID),
		zap.Int64("captured", capturedAmount),
		zap.String("newStatus", string(target)),
	)
	s.notify(ctx, bookingID, "payment_captured")
	return nil
}

// ApplyPaymentFailed marks the payment as failed. Terminal; a retry is a new booking.
func (s *DefaultBookingService) ApplyPaymentFailed(ctx context.Context, bookingID, externalRef string) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingPending && b.Status != models.BookingAuthorized {
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("payment failure not valid from %s", b.Status))
	}

	err = s.casUpdate(bookingID, b.Status, models.BookingPaymentFailed, bson.M{
		"payment_intent_ref": externalRef,
	})
	if err != nil {
		return err
	}

	s.Logger.Warn("Payment failed",
		zap.String("bookingId", bookingID),
		zap.String("externalRef", externalRef),
	)
	s.notify(ctx, bookingID, "payment_failed")
	return nil
}

// Cancel applies the cancellation policy and, when a refund is owed,
// schedules a compensating refund instruction with a deterministic
// idempotency key.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, initiator string, now time.Time) (*policy.Decision, error) {
	b, err := s.fetch(bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, NewTransitionError(CodeAlreadyTerminal,
			fmt.Sprintf("booking already %s", b.Status))
	}
	if b.Status == models.BookingInProgress {
		return nil, NewTransitionError(CodeInProgress, "cannot cancel a started service")
	}

	decision := policy.ComputeRefund(b.ScheduledStart, now, b.Status)
	if !decision.Allowed {
		return &decision, NewTransitionError(CodeInvalidTransition, decision.Reason)
	}

	refundBase := b.AmountCaptured
	if refundBase == 0 {
		refundBase = b.AmountAuthorized
	}
	refundAmount := policy.RefundAmount(refundBase, decision.RefundPercent)

	err = s.casUpdate(bookingID, b.Status, models.BookingCanceled, bson.M{
		"canceled_at":        now,
		"canceled_by":        initiator,
		"cancel_reason":      decision.Reason,
		"refund_due_percent": decision.RefundPercent,
		"refund_due_amount":  refundAmount,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Booking canceled",
		zap.String("bookingId", bookingID),
		zap.String("initiator", initiator),
		zap.Int("refundPercent", decision.RefundPercent),
		zap.Int64("refundAmount", refundAmount),
	)

	if refundAmount > 0 && b.PaymentIntentRef != "" {
		key := refundIdempotencyKey(bookingID, now)
		if _, err := s.Gateway.CreateRefund(ctx, b.PaymentIntentRef, refundAmount, key); err != nil {
			// The cancellation stands; the owed refund is recorded on the
			// booking and escalated rather than silently dropped.
			s.Logger.Error("Refund instruction failed",
				zap.String("bookingId", bookingID),
				zap.Int64("refundAmount", refundAmount),
				zap.Error(err),
			)
			s.Notifier.EscalateDiscrepancy(ctx, "refund_instruction_failed", bookingID,
				fmt.Sprintf("refund of %d for booking %s could not be scheduled: %v", refundAmount, bookingID, err))
		}
	}

	s.notify(ctx, bookingID, "canceled")
	return &decision, nil
}

// ApplyRefundProcessed records the gateway's confirmation of a scheduled
// refund. A duplicate delivery with the same external reference is a no-op.
func (s *DefaultBookingService) ApplyRefundProcessed(ctx context.Context, bookingID string, refundedAmount int64, externalRef string) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}
	if b.RefundRef == externalRef && externalRef != "" {
		return nil
	}
	if b.Status != models.BookingCanceled || b.RefundDueAmount == 0 {
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("no refund scheduled for booking in %s", b.Status))
	}
	if refundedAmount != b.RefundDueAmount {
		s.Notifier.EscalateDiscrepancy(ctx, "refund_amount_mismatch", bookingID,
			fmt.Sprintf("gateway refunded %d but %d was scheduled", refundedAmount, b.RefundDueAmount))
		return NewTransitionError(CodeAmountMismatch,
			fmt.Sprintf("refunded %d does not match scheduled %d", refundedAmount, b.RefundDueAmount))
	}

	err = s.casUpdate(bookingID, models.BookingCanceled, models.BookingCanceled, bson.M{
		"amount_refunded": refundedAmount,
		"refund_ref":      externalRef,
		"amount_final":    b.AmountCaptured + b.AmountTip - refundedAmount,
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Refund processed",
		zap.String("bookingId", bookingID),
		zap.Int64("refunded", refundedAmount),
		zap.String("externalRef", externalRef),
	)
	s.notify(ctx, bookingID, "refund_processed")
	return nil
}

// MarkServiceStarted moves a confirmed booking into in_progress.
func (s *DefaultBookingService) MarkServiceStarted(ctx context.Context, bookingID string) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingConfirmed {
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("service start not valid from %s", b.Status))
	}
	if err := s.casUpdate(bookingID, b.Status, models.BookingInProgress, bson.M{}); err != nil {
		return err
	}
	s.notify(ctx, bookingID, "service_started")
	return nil
}

// MarkServiceCompleted records the professional's completion signal. With the
// payment already captured the booking completes immediately; otherwise it
// stays in_progress and completes when the capture webhook lands.
func (s *DefaultBookingService) MarkServiceCompleted(ctx context.Context, bookingID string, now time.Time) error {
	b, err := s.fetch(bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingInProgress {
		return NewTransitionError(CodeInvalidTransition,
			fmt.Sprintf("service completion not valid from %s", b.Status))
	}

	fields := bson.M{"service_completed_at": now}
	target := models.BookingInProgress
	if b.AmountCaptured > 0 {
		target = models.BookingCompleted
		fields["completed_at"] = now
		fields["amount_final"] = b.AmountCaptured + b.AmountTip - b.AmountRefunded
	}

	if err := s.casUpdate(bookingID, b.Status, target, fields); err != nil {
		return err
	}

	s.Logger.Info("Service completed",
		zap.String("bookingId", bookingID),
		zap.String("newStatus", string(target)),
	)
	s.notify(ctx, bookingID, "service_completed")
	return nil
}

// --- helpers ---

func (s *DefaultBookingService) fetch(bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetBookingByID(bookingID)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrNotFound) {
			return nil, NewTransitionError(CodeNotFound, fmt.Sprintf("booking %s not found", bookingID))
		}
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	return b, nil
}

func (s *DefaultBookingService) casUpdate(bookingID string, expected, target models.BookingStatus, fields bson.M) error {
	err := s.Repo.UpdateBookingCAS(bookingID, expected, target, fields)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrNoMatch) {
			return NewTransitionError(CodeConcurrentModification,
				fmt.Sprintf("booking %s moved out of %s", bookingID, expected))
		}
		return fmt.Errorf("failed to apply transition on booking %s: %w", bookingID, err)
	}
	return nil
}

func (s *DefaultBookingService) notify(ctx context.Context, bookingID, event string) {
	b, err := s.Repo.GetBookingByID(bookingID)
	if err != nil {
		return
	}
	s.Notifier.NotifyBookingStatus(ctx, b, event)
}

// refundIdempotencyKey derives a stable key from the booking id and the
// cancellation timestamp, so a crashed-and-retried cancel never issues the
// refund twice.
func refundIdempotencyKey(bookingID string, canceledAt time.Time) string {
	sum := sha256.Sum256([]byte(bookingID + canceledAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}
