package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	"github.com/smallbiznis/partnerpay/internal/notification"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/settlement/domain"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/transfer"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TransferCreator is the slice of the Stripe API the rail needs; tests
// substitute a fake.
type TransferCreator interface {
	New(params *stripe.TransferParams) (*stripe.Transfer, error)
}

type apiTransferCreator struct{}

func (apiTransferCreator) New(params *stripe.TransferParams) (*stripe.Transfer, error) {
	return transfer.New(params)
}

// NewAPITransferCreator returns the production TransferCreator backed by the
// global Stripe client.
func NewAPITransferCreator() TransferCreator {
	return apiTransferCreator{}
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Metrics    *metrics.Metrics
	PayoutRepo payoutdomain.Repository
	Notifier   notification.Sender
	Transfers  TransferCreator
}

// Rail disburses payouts to partners with connected Stripe accounts, one
// transfer per payout.
type Rail struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	metrics    *metrics.Metrics
	payoutRepo payoutdomain.Repository
	notifier   notification.Sender
	transfers  TransferCreator
}

func NewRail(p Params) *Rail {
	return &Rail{
		db:         p.DB,
		log:        p.Log.Named("settlement.rail.stripe"),
		clock:      p.Clock,
		metrics:    p.Metrics,
		payoutRepo: p.PayoutRepo,
		notifier:   p.Notifier,
		transfers:  p.Transfers,
	}
}

func (r *Rail) Name() string {
	return "stripe"
}

// Dispatch transfers each payout sequentially. A failed transfer is recorded
// and the loop moves on; the ledger for a succeeded transfer is written
// before the next provider call so a crash mid-run never loses a completed
// disbursement.
func (r *Rail) Dispatch(ctx context.Context, notification domain.Notification, items []payoutdomain.SettlementItem) domain.RailResult {
	var result domain.RailResult

	for _, item := range items {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, item.PayoutID)
			result.Err = ctx.Err()
			continue
		}

		params := &stripe.TransferParams{
			Amount:        stripe.Int64(item.Amount),
			Currency:      stripe.String(strings.ToLower(item.Currency)),
			Destination:   stripe.String(*item.StripeConnectID),
			TransferGroup: stripe.String(notification.InvoiceID.String()),
			Description:   stripe.String(fmt.Sprintf("Partner payout %s", item.PayoutID.String())),
		}
		// An ACH credit transfer charge cannot fund a sourced transfer; the
		// platform balance covers it instead.
		if !notification.ACHCreditTransfer && notification.ChargeID != "" {
			params.SourceTransaction = stripe.String(notification.ChargeID)
		}

		created, err := r.transfers.New(params)
		if err != nil {
			r.metrics.IncTransferDispatched(r.Name(), "error")
			r.log.Warn("stripe transfer failed",
				zap.String("payout_id", item.PayoutID.String()),
				zap.String("partner_id", item.PartnerID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, item.PayoutID)
			continue
		}

		if err := r.settle(ctx, item); err != nil {
			// Money moved but the ledger write failed; surface loudly and
			// count the item failed so the invoice stays open.
			r.metrics.IncTransferDispatched(r.Name(), "ledger_error")
			r.log.Error("transfer succeeded but ledger update failed",
				zap.String("payout_id", item.PayoutID.String()),
				zap.String("transfer_id", created.ID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, item.PayoutID)
			continue
		}

		r.metrics.IncTransferDispatched(r.Name(), "ok")
		result.Dispatched = append(result.Dispatched, item.PayoutID)

		r.notify(ctx, item, notification.ReceiptURL)
	}

	return result
}

func (r *Rail) settle(ctx context.Context, item payoutdomain.SettlementItem) error {
	paidAt := r.clock.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.payoutRepo.MarkCompleted(ctx, tx, item.PayoutID, paidAt); err != nil {
			return err
		}
		return r.payoutRepo.MarkCommissionsPaid(ctx, tx, item.PayoutID, paidAt)
	})
}

func (r *Rail) notify(ctx context.Context, item payoutdomain.SettlementItem, receiptURL string) {
	err := r.notifier.SendPayoutPaid(ctx, notification.PayoutPaid{
		PartnerName:  item.PartnerName,
		PartnerEmail: item.PartnerEmail,
		Amount:       item.Amount,
		Currency:     item.Currency,
		ReceiptURL:   receiptURL,
	})
	if err != nil {
		r.log.Warn("payout notification failed",
			zap.String("payout_id", item.PayoutID.String()),
			zap.Error(err),
		)
	}
}
