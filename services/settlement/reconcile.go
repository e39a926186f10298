package settlement

import (
	"context"
	"fmt"

	"homely/models"
	"homely/services/gateway"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ReconcilePayouts is the second-phase follow-up: it polls the gateway for
// every in-transit payout and settles it to paid or failed. A reversed
// transfer frees its booking ids for the next run.
func (s *SettlementService) ReconcilePayouts(ctx context.Context) error {
	payouts, err := s.Repo.ListPayoutsByStatus(models.PayoutInTransit)
	if err != nil {
		return fmt.Errorf("failed to list in-transit payouts: %w", err)
	}

	for i := range payouts {
		p := &payouts[i]
		state, err := s.Gateway.TransferState(ctx, p.TransferRef)
		if err != nil {
			// Transient lookup failure: leave the payout in transit for the
			// next reconcile pass.
			s.Logger.Warn("Transfer state lookup failed",
				zap.String("payoutId", p.ID),
				zap.String("transferRef", p.TransferRef),
				zap.Error(err),
			)
			continue
		}

		switch state {
		case gateway.TransferPaid:
			if err := s.Repo.UpdatePayoutCAS(p.ID, models.PayoutInTransit, models.PayoutPaid, bson.M{}); err != nil {
				s.Logger.Error("Failed to mark payout paid",
					zap.String("payoutId", p.ID), zap.Error(err))
				continue
			}
			p.Status = models.PayoutPaid
			s.Notifier.NotifyPayoutStatus(ctx, p)

		case gateway.TransferFailed:
			if err := s.Repo.UpdatePayoutCAS(p.ID, models.PayoutInTransit, models.PayoutFailed, bson.M{
				"failure_reason": "transfer reversed",
			}); err != nil {
				s.Logger.Error("Failed to mark payout failed",
					zap.String("payoutId", p.ID), zap.Error(err))
				continue
			}
			p.Status = models.PayoutFailed
			if err := s.Repo.SetBookingsSettled(p.BookingIDs, false); err != nil {
				s.Logger.Warn("Failed to unflag settled bookings",
					zap.String("payoutId", p.ID), zap.Error(err))
			}
			s.Notifier.NotifyPayoutStatus(ctx, p)
			s.Notifier.EscalateDiscrepancy(ctx, "payout_reversed", p.ID,
				fmt.Sprintf("transfer %s for payout %s was reversed; %d bookings are eligible again",
					p.TransferRef, p.ID, len(p.BookingIDs)))
		}
	}
	return nil
}
