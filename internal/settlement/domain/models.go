package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrRailFailed       = errors.New("settlement_rail_failed")
)

// Notification is the funding-capture trigger for a settlement run.
type Notification struct {
	ChargeID          string       `json:"chargeId"`
	InvoiceID         snowflake.ID `json:"invoiceId"`
	ReceiptURL        string       `json:"receiptUrl"`
	ACHCreditTransfer bool         `json:"achCreditTransfer"`
}

// RailResult reports the per-item outcome of one rail's dispatch.
type RailResult struct {
	Dispatched []snowflake.ID
	Failed     []snowflake.ID
	Err        error
}

// Rail disburses a partition of an invoice's payouts over one provider.
type Rail interface {
	Name() string
	Dispatch(ctx context.Context, notification Notification, items []payoutdomain.SettlementItem) RailResult
}

// Dispatcher runs one settlement pass for a notification. It is safe to call
// repeatedly with the same notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, notification Notification) error
}
