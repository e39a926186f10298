package models

import "time"

// PayoutStatus enumerates the disbursement states of a payout.
type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutInTransit PayoutStatus = "in_transit"
	PayoutPaid      PayoutStatus = "paid"
	PayoutFailed    PayoutStatus = "failed"
)

// Payout represents one batch disbursement to one professional for one settlement run.
// The booking id tagging is what enforces the no-double-pay invariant: a booking
// referenced by any non-failed payout is never grouped again.
type Payout struct {
	ID             string       `bson:"id" json:"id"`
	ProfessionalID string       `bson:"professional_id" json:"professional_id"`
	RunID          string       `bson:"run_id" json:"run_id"`
	BookingIDs     []string     `bson:"booking_ids" json:"booking_ids"`
	GrossAmount    int64        `bson:"gross_amount" json:"gross_amount"`
	FeeAmount      int64        `bson:"fee_amount" json:"fee_amount"`
	NetAmount      int64        `bson:"net_amount" json:"net_amount"`
	Currency       string       `bson:"currency" json:"currency"`
	Status         PayoutStatus `bson:"status" json:"status"`
	TransferRef    string       `bson:"transfer_ref,omitempty" json:"transfer_ref,omitempty"`
	FailureReason  string       `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt      time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at" json:"updated_at"`
}

// Settlement run states.
const (
	RunScheduled      = "scheduled"
	RunLocked         = "locked"
	RunComputing      = "computing"
	RunDisbursing     = "disbursing"
	RunDone           = "done"
	RunSkipped        = "skipped"
	RunPartialFailure = "partial_failure"
)

// SettlementRun records one execution of the payout settlement batch processor.
type SettlementRun struct {
	ID             string     `bson:"id" json:"id"`
	State          string     `bson:"state" json:"state"`
	HolderID       string     `bson:"holder_id" json:"holder_id"`
	BookingCount   int        `bson:"booking_count" json:"booking_count"`
	PayoutCount    int        `bson:"payout_count" json:"payout_count"`
	FailedPayouts  int        `bson:"failed_payouts" json:"failed_payouts"`
	GrossTotal     int64      `bson:"gross_total" json:"gross_total"`
	NetTotal       int64      `bson:"net_total" json:"net_total"`
	Note           string     `bson:"note,omitempty" json:"note,omitempty"`
	StartedAt      time.Time  `bson:"started_at" json:"started_at"`
	FinishedAt     *time.Time `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}
