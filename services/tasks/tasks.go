package tasks

import (
	"encoding/json"

	"homely/models"

	"github.com/hibiken/asynq"
)

const (
	TypeSendNotification = "notification:send"
	TypeSettlementRun    = "settlement:run"
	TypeSettlementRecon  = "settlement:reconcile"
)

func NewNotificationTask(payload models.NotificationPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendNotification, b), nil
}

func NewSettlementRunTask() *asynq.Task {
	return asynq.NewTask(TypeSettlementRun, nil)
}

func NewSettlementReconTask() *asynq.Task {
	return asynq.NewTask(TypeSettlementRecon, nil)
}
