package policy

import (
	"time"

	"homely/models"
)

// Cancellation reasons surfaced verbatim to customers.
const (
	ReasonAlreadyCompleted  = "already completed"
	ReasonServiceInProgress = "service in progress"
	ReasonTimePassed        = "service time has passed"
	ReasonFullRefund        = "canceled 24 hours or more before start"
	ReasonHalfRefund        = "canceled between 12 and 24 hours before start"
	ReasonQuarterRefund     = "canceled between 4 and 12 hours before start"
	ReasonNoRefund          = "canceled less than 4 hours before start"
)

// Decision is the outcome of the cancellation policy for one booking.
type Decision struct {
	Allowed       bool   `json:"allowed"`
	RefundPercent int    `json:"refund_percent"` // 0, 25, 50 or 100
	Reason        string `json:"reason"`
}

// ComputeRefund determines whether a cancellation is allowed and which refund
// tier applies. Pure function: no I/O, no clock access. Tier lower bounds are
// inclusive, so a cancellation at exactly 24 hours out earns the full refund.
func ComputeRefund(scheduledStart, now time.Time, status models.BookingStatus) Decision {
	if status == models.BookingCompleted {
		return Decision{Allowed: false, Reason: ReasonAlreadyCompleted}
	}
	if status == models.BookingInProgress {
		return Decision{Allowed: false, Reason: ReasonServiceInProgress}
	}
	if scheduledStart.Before(now) {
		return Decision{Allowed: false, Reason: ReasonTimePassed}
	}

	until := scheduledStart.Sub(now)
	switch {
	case until >= 24*time.Hour:
		return Decision{Allowed: true, RefundPercent: 100, Reason: ReasonFullRefund}
	case until >= 12*time.Hour:
		return Decision{Allowed: true, RefundPercent: 50, Reason: ReasonHalfRefund}
	case until >= 4*time.Hour:
		return Decision{Allowed: true, RefundPercent: 25, Reason: ReasonQuarterRefund}
	default:
		// Cancellation is still allowed inside 4 hours; no money returned.
		return Decision{Allowed: true, RefundPercent: 0, Reason: ReasonNoRefund}
	}
}

// RefundAmount computes the refund in minor units using round-half-up, which
// keeps the math deterministic and easy to audit.
func RefundAmount(base int64, percent int) int64 {
	if base <= 0 || percent <= 0 {
		return 0
	}
	return (base*int64(percent) + 50) / 100
}
