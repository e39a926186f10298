package models

import "time"

// NotificationPayload is the task body handed to the notification collaborator.
// Delivery (push/email) happens outside this core; the payload carries enough
// context for the delivery worker to render a message.
type NotificationPayload struct {
	Target    string            `json:"target"` // "customer", "professional" or "operator"
	TargetID  string            `json:"targetId"`
	Kind      string            `json:"kind"` // e.g. "booking_status", "payout_status", "escalation"
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
