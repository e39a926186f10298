package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/zap"
)

// StripeClient implements Client against the Stripe API. The API key is set
// process-wide in main via stripe.Key.
type StripeClient struct {
	Logger *zap.Logger
}

func NewStripeClient(logger *zap.Logger) *StripeClient {
	return &StripeClient{Logger: logger}
}

func (c *StripeClient) CreateRefund(ctx context.Context, paymentRef string, amount int64, idempotencyKey string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentRef),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	ref, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe refund for %s failed: %w", paymentRef, err)
	}

	c.Logger.Info("Refund created",
		zap.String("paymentRef", paymentRef),
		zap.String("refundRef", ref.ID),
		zap.Int64("amount", amount),
	)
	return ref.ID, nil
}

func (c *StripeClient) CreateTransfer(ctx context.Context, destination string, amount int64, currency, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(destination),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe transfer to %s failed: %w", destination, err)
	}

	c.Logger.Info("Transfer created",
		zap.String("destination", destination),
		zap.String("transferRef", tr.ID),
		zap.Int64("amount", amount),
	)
	return tr.ID, nil
}

func (c *StripeClient) TransferState(ctx context.Context, transferRef string) (string, error) {
	params := &stripe.TransferParams{}
	params.Context = ctx

	tr, err := transfer.Get(transferRef, params)
	if err != nil {
		return "", fmt.Errorf("stripe transfer lookup for %s failed: %w", transferRef, err)
	}
	if tr.Reversed {
		return TransferFailed, nil
	}
	return TransferPaid, nil
}
