package gateway

import "context"

// Client is the outbound payment-gateway surface this core depends on.
// Idempotency keys are supplied by the caller so a retried call can never
// move money twice.
type Client interface {
	// CreateRefund issues a refund against the original payment reference and
	// returns the gateway's refund reference.
	CreateRefund(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (string, error)
	// CreateTransfer disburses net earnings to a payee account and returns
	// the gateway's transfer reference.
	CreateTransfer(ctx context.Context, destination string, amount int64, currency, idempotencyKey string) (string, error)
	// TransferState reports the current state of a transfer: "paid" or "failed".
	TransferState(ctx context.Context, transferRef string) (string, error)
}

// Transfer states reported by TransferState.
const (
	TransferPaid   = "paid"
	TransferFailed = "failed"
)
