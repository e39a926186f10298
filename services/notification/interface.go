package notification

import (
	"context"

	"homely/models"
)

// NotificationService is the fire-and-forget collaborator fed by state-change
// events and settlement reports. Delivery (push/email) lives outside this
// core; failures here never affect booking or payout state.
type NotificationService interface {
	NotifyBookingStatus(ctx context.Context, b *models.Booking, event string)
	NotifyPayoutStatus(ctx context.Context, p *models.Payout)
	NotifySettlementRun(ctx context.Context, run *models.SettlementRun)
	// EscalateDiscrepancy routes money-affecting anomalies (amount mismatches,
	// partial-failure runs) to operators for manual review.
	EscalateDiscrepancy(ctx context.Context, kind, subjectID, detail string)
}
