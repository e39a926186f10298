package notification

import (
	"context"
	"fmt"
	"time"

	"homely/models"
	"homely/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// AsynqNotificationService enqueues notification tasks for the background
// delivery worker. Enqueue failures are logged and dropped: notifications are
// best-effort and never block money movement.
type AsynqNotificationService struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqNotificationService(client *asynq.Client, logger *zap.Logger) *AsynqNotificationService {
	return &AsynqNotificationService{Client: client, Logger: logger}
}

func (s *AsynqNotificationService) NotifyBookingStatus(ctx context.Context, b *models.Booking, event string) {
	s.enqueue(ctx, models.NotificationPayload{
		Target:   "customer",
		TargetID: b.CustomerID,
		Kind:     "booking_status",
		Title:    "Booking update",
		Body:     fmt.Sprintf("Your booking is now %s.", b.Status),
		Data: map[string]string{
			"bookingId": b.ID,
			"status":    string(b.Status),
			"event":     event,
		},
		CreatedAt: time.Now(),
	})
}

func (s *AsynqNotificationService) NotifyPayoutStatus(ctx context.Context, p *models.Payout) {
	s.enqueue(ctx, models.NotificationPayload{
		Target:   "professional",
		TargetID: p.ProfessionalID,
		Kind:     "payout_status",
		Title:    "Payout update",
		Body:     fmt.Sprintf("Your payout of %d (%s) is %s.", p.NetAmount, p.Currency, p.Status),
		Data: map[string]string{
			"payoutId": p.ID,
			"runId":    p.RunID,
			"status":   string(p.Status),
		},
		CreatedAt: time.Now(),
	})
}

func (s *AsynqNotificationService) NotifySettlementRun(ctx context.Context, run *models.SettlementRun) {
	s.enqueue(ctx, models.NotificationPayload{
		Target:   "operator",
		TargetID: "finance",
		Kind:     "settlement_run",
		Title:    "Settlement run finished",
		Body:     fmt.Sprintf("Run %s finished in state %s (%d payouts, %d failed).", run.ID, run.State, run.PayoutCount, run.FailedPayouts),
		Data: map[string]string{
			"runId": run.ID,
			"state": run.State,
		},
		CreatedAt: time.Now(),
	})
}

func (s *AsynqNotificationService) EscalateDiscrepancy(ctx context.Context, kind, subjectID, detail string) {
	s.Logger.Error("Escalating discrepancy for manual review",
		zap.String("kind", kind),
		zap.String("subjectId", subjectID),
		zap.String("detail", detail),
	)
	s.enqueue(ctx, models.NotificationPayload{
		Target:   "operator",
		TargetID: "finance",
		Kind:     "escalation",
		Title:    fmt.Sprintf("Manual review required: %s", kind),
		Body:     detail,
		Data: map[string]string{
			"kind":      kind,
			"subjectId": subjectID,
		},
		CreatedAt: time.Now(),
	})
}

func (s *AsynqNotificationService) enqueue(ctx context.Context, payload models.NotificationPayload) {
	task, err := tasks.NewNotificationTask(payload)
	if err != nil {
		s.Logger.Warn("Failed to build notification task", zap.Error(err))
		return
	}
	if _, err := s.Client.EnqueueContext(ctx, task); err != nil {
		s.Logger.Warn("Failed to enqueue notification task",
			zap.String("kind", payload.Kind),
			zap.Error(err),
		)
	}
}
