package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ledgerRepo "homely/database/repository/ledger"
	"homely/models"
	"homely/services/booking"
	"homely/services/notification"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// ErrInvalidSignature means the payload failed authenticity verification.
// The ingestor fails closed: an unverified payload is never processed.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Ingestion outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeIgnored   = "ignored"
	OutcomeStale     = "stale"
	OutcomeEscalated = "escalated"
)

// Gateway event types this core understands.
const (
	EventPaymentAuthorized = "payment_intent.amount_capturable_updated"
	EventPaymentCaptured   = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

// Result is the typed outcome of one webhook delivery.
type Result struct {
	Outcome   string `json:"outcome"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Ingestor verifies, deduplicates and maps inbound gateway events onto
// booking state-machine transitions.
type Ingestor struct {
	Secret   string
	Bookings booking.BookingService
	Guard    ledgerRepo.IdempotencyRepository
	Notifier notification.NotificationService
	Logger   *zap.Logger
}

// paymentIntentPayload is the slice of the gateway's payment object we need.
type paymentIntentPayload struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Metadata       map[string]string `json:"metadata"`
}

type chargePayload struct {
	ID             string            `json:"id"`
	AmountRefunded int64             `json:"amount_refunded"`
	Metadata       map[string]string `json:"metadata"`
	Refunds        struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"refunds"`
}

// Ingest processes one delivery. A nil error means the delivery is
// acknowledged (including idempotent no-ops and stale events); a non-nil
// error tells the HTTP layer to answer non-2xx so the gateway redelivers.
func (in *Ingestor) Ingest(ctx context.Context, payload []byte, signatureHeader string) (*Result, error) {
	event, err := stripewebhook.ConstructEvent(payload, signatureHeader, in.Secret)
	if err != nil {
		in.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		return nil, ErrInvalidSignature
	}

	res := &Result{EventID: event.ID, EventType: string(event.Type)}

	// Idempotency guard: the event id is the durable dedupe key. The record
	// is written with a processing marker first and finalized after the
	// state-machine write, so a crash mid-processing yields a safe
	// re-delivery instead of a silent loss.
	proceed, prior, err := in.begin(event.ID)
	if err != nil {
		return nil, fmt.Errorf("idempotency guard failed for event %s: %w", event.ID, err)
	}
	if !proceed {
		res.Outcome = prior.Outcome
		res.Duplicate = true
		in.Logger.Info("Duplicate webhook delivery",
			zap.String("eventId", event.ID),
			zap.String("outcome", prior.Outcome),
		)
		return res, nil
	}

	outcome, bookingID, err := in.dispatch(ctx, string(event.Type), event.Data.Raw)
	if err != nil {
		// Leave the record in processing; the redelivery will re-apply.
		return nil, err
	}
	res.Outcome = outcome
	res.BookingID = bookingID

	if err := in.Guard.FinalizeIdempotencyRecord(event.ID, outcome); err != nil {
		in.Logger.Error("Failed to finalize idempotency record",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
	}
	return res, nil
}

// begin inserts the processing marker. A duplicate of a completed record
// short-circuits with the recorded outcome; a duplicate of a processing
// record means a crashed attempt and processing continues.
func (in *Ingestor) begin(eventID string) (bool, *models.IdempotencyRecord, error) {
	err := in.Guard.InsertIdempotencyRecord(&models.IdempotencyRecord{
		Key:         eventID,
		Status:      models.IdempotencyProcessing,
		FirstSeenAt: time.Now(),
	})
	if err == nil {
		return true, nil, nil
	}
	if !errors.Is(err, ledgerRepo.ErrDuplicate) {
		return false, nil, err
	}

	prior, err := in.Guard.GetIdempotencyRecord(eventID)
	if err != nil {
		return false, nil, err
	}
	if prior.Status == models.IdempotencyProcessing {
		return true, prior, nil
	}
	return false, prior, nil
}

// dispatch maps the event's semantic type to one state-machine operation.
func (in *Ingestor) dispatch(ctx context.Context, eventType string, raw json.RawMessage) (string, string, error) {
	switch eventType {
	case EventPaymentAuthorized:
		pi, bookingID, err := in.parseIntent(raw)
		if err != nil {
			return "", "", err
		}
		return in.applyWithRetry(ctx, eventType, bookingID, func() error {
			return in.Bookings.ApplyPaymentAuthorized(ctx, bookingID, pi.Amount, pi.ID)
		})

	case EventPaymentCaptured:
		pi, bookingID, err := in.parseIntent(raw)
		if err != nil {
			return "", "", err
		}
		captured := pi.AmountReceived
		if captured == 0 {
			captured = pi.Amount
		}
		return in.applyWithRetry(ctx, eventType, bookingID, func() error {
			return in.Bookings.ApplyPaymentCaptured(ctx, bookingID, captured, pi.ID)
		})

	case EventPaymentFailed:
		pi, bookingID, err := in.parseIntent(raw)
		if err != nil {
			return "", "", err
		}
		return in.applyWithRetry(ctx, eventType, bookingID, func() error {
			return in.Bookings.ApplyPaymentFailed(ctx, bookingID, pi.ID)
		})

	case EventChargeRefunded:
		var ch chargePayload
		if err := json.Unmarshal(raw, &ch); err != nil {
			return "", "", fmt.Errorf("malformed charge payload: %w", err)
		}
		bookingID := ch.Metadata["booking_id"]
		if bookingID == "" {
			return "", "", fmt.Errorf("charge %s carries no booking_id metadata", ch.ID)
		}
		refundRef := ch.ID
		if len(ch.Refunds.Data) > 0 {
			refundRef = ch.Refunds.Data[0].ID
		}
		return in.applyWithRetry(ctx, eventType, bookingID, func() error {
			return in.Bookings.ApplyRefundProcessed(ctx, bookingID, ch.AmountRefunded, refundRef)
		})

	default:
		// Unrecognized event types are acknowledged and ignored so new
		// gateway event types never break ingestion.
		in.Logger.Info("Ignoring unrecognized gateway event type",
			zap.String("eventType", eventType))
		return OutcomeIgnored, "", nil
	}
}

func (in *Ingestor) parseIntent(raw json.RawMessage) (*paymentIntentPayload, string, error) {
	var pi paymentIntentPayload
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, "", fmt.Errorf("malformed payment intent payload: %w", err)
	}
	bookingID := pi.Metadata["booking_id"]
	if bookingID == "" {
		return nil, "", fmt.Errorf("payment intent %s carries no booking_id metadata", pi.ID)
	}
	return &pi, bookingID, nil
}

// applyWithRetry applies one transition, retrying a concurrent modification
// once before classifying the event. Out-of-order events whose source status
// no longer matches are discarded as stale, not retried.
func (in *Ingestor) applyWithRetry(ctx context.Context, eventType, bookingID string, apply func() error) (string, string, error) {
	err := apply()
	if booking.IsConcurrentModification(err) {
		err = apply()
	}
	if err == nil {
		return OutcomeApplied, bookingID, nil
	}

	switch booking.ErrCode(err) {
	case booking.CodeConcurrentModification, booking.CodeInvalidTransition:
		in.Logger.Warn("Discarding stale gateway event",
			zap.String("eventType", eventType),
			zap.String("bookingId", bookingID),
			zap.Error(err),
		)
		return OutcomeStale, bookingID, nil
	case booking.CodeAmountMismatch:
		// Never auto-retried; routed to manual review.
		in.Notifier.EscalateDiscrepancy(ctx, "amount_mismatch", bookingID, err.Error())
		return OutcomeEscalated, bookingID, nil
	default:
		return "", bookingID, fmt.Errorf("failed to apply %s for booking %s: %w", eventType, bookingID, err)
	}
}
