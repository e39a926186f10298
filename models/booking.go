package models

import "time"

// BookingStatus enumerates the booking payment lifecycle states.
type BookingStatus string

const (
	BookingPending       BookingStatus = "pending"
	BookingAuthorized    BookingStatus = "authorized"
	BookingConfirmed     BookingStatus = "confirmed"
	BookingInProgress    BookingStatus = "in_progress"
	BookingCompleted     BookingStatus = "completed"
	BookingCanceled      BookingStatus = "canceled"
	BookingPaymentFailed BookingStatus = "payment_failed"
	BookingDisputed      BookingStatus = "disputed"
)

// IsTerminal reports whether the status admits no further customer-initiated transitions.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCompleted, BookingCanceled, BookingPaymentFailed, BookingDisputed:
		return true
	}
	return false
}

// Booking represents one scheduled service engagement between a customer and a professional.
// All monetary amounts are integer minor-currency units.
type Booking struct {
	ID             string        `bson:"id" json:"id"`
	CustomerID     string        `bson:"customer_id" json:"customer_id"`
	ProfessionalID string        `bson:"professional_id" json:"professional_id"`
	ServiceType    string        `bson:"service_type" json:"service_type"` // e.g. "cleaning", "plumbing"
	ScheduledStart time.Time     `bson:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd   time.Time     `bson:"scheduled_end" json:"scheduled_end"`
	Currency       string        `bson:"currency" json:"currency"` // mandatory, never defaulted
	Status         BookingStatus `bson:"status" json:"status"`

	AmountDue        int64 `bson:"amount_due" json:"amount_due"` // quoted price at creation
	AmountAuthorized int64 `bson:"amount_authorized" json:"amount_authorized"`
	AmountCaptured   int64 `bson:"amount_captured" json:"amount_captured"`
	AmountTip        int64 `bson:"amount_tip" json:"amount_tip"`
	AmountRefunded   int64 `bson:"amount_refunded" json:"amount_refunded"`
	AmountFinal      int64 `bson:"amount_final" json:"amount_final"` // captured + tip - refunded, set at terminal states

	PaymentIntentRef string `bson:"payment_intent_ref,omitempty" json:"payment_intent_ref,omitempty"`
	RefundRef        string `bson:"refund_ref,omitempty" json:"refund_ref,omitempty"`
	RefundDuePercent int    `bson:"refund_due_percent,omitempty" json:"refund_due_percent,omitempty"`
	RefundDueAmount  int64  `bson:"refund_due_amount,omitempty" json:"refund_due_amount,omitempty"`
	CancelReason     string `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CanceledBy       string `bson:"canceled_by,omitempty" json:"canceled_by,omitempty"`

	// Settled marks a terminal booking whose payout reached in_transit or paid;
	// a settled booking is read-only.
	Settled bool `bson:"settled" json:"settled"`

	ServiceCompletedAt *time.Time `bson:"service_completed_at,omitempty" json:"service_completed_at,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt        *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CanceledAt         *time.Time `bson:"canceled_at,omitempty" json:"canceled_at,omitempty"`
}
