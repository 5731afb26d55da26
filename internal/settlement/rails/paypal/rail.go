package paypal

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	paypalsdk "github.com/plutov/paypal/v4"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/scheduler"
	"github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PayoutClient is the slice of the PayPal API the rail needs; tests
// substitute a fake.
type PayoutClient interface {
	CreatePayout(ctx context.Context, payout paypalsdk.Payout) (*paypalsdk.PayoutResponse, error)
}

type apiPayoutClient struct {
	client *paypalsdk.Client

	mu            sync.Mutex
	authenticated bool
}

// NewAPIPayoutClient builds the production client. Credentials may be empty
// in development; the constructor defers the failure to the first call.
func NewAPIPayoutClient(cfg config.Config) (PayoutClient, error) {
	client, err := paypalsdk.NewClient(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalAPIBase)
	if err != nil {
		return nil, err
	}
	return &apiPayoutClient{client: client}, nil
}

func (c *apiPayoutClient) CreatePayout(ctx context.Context, payout paypalsdk.Payout) (*paypalsdk.PayoutResponse, error) {
	c.mu.Lock()
	if !c.authenticated {
		if _, err := c.client.GetAccessToken(ctx); err != nil {
			c.mu.Unlock()
			return nil, err
		}
		c.authenticated = true
	}
	c.mu.Unlock()

	return c.client.CreatePayout(ctx, payout)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Config     config.Config
	Metrics    *metrics.Metrics
	PayoutRepo payoutdomain.Repository
	Store      *scheduler.Store
	Client     PayoutClient
}

// Rail disburses payouts to partners paid by email, as one atomic PayPal
// batch per invoice.
type Rail struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	cfg        config.Config
	metrics    *metrics.Metrics
	payoutRepo payoutdomain.Repository
	store      *scheduler.Store
	client     PayoutClient
}

func NewRail(p Params) *Rail {
	return &Rail{
		db:         p.DB,
		log:        p.Log.Named("settlement.rail.paypal"),
		clock:      p.Clock,
		cfg:        p.Config,
		metrics:    p.Metrics,
		payoutRepo: p.PayoutRepo,
		store:      p.Store,
		client:     p.Client,
	}
}

func (r *Rail) Name() string {
	return "paypal"
}

// Dispatch submits all items as one batch keyed on the invoice id, so a
// provider-side replay of the same invoice cannot double-pay. A rejected
// batch rolls every item back to pending and schedules a retry.
func (r *Rail) Dispatch(ctx context.Context, notification domain.Notification, items []payoutdomain.SettlementItem) domain.RailResult {
	var result domain.RailResult

	batchItems := make([]paypalsdk.PayoutItem, 0, len(items))
	for _, item := range items {
		batchItems = append(batchItems, paypalsdk.PayoutItem{
			RecipientType: "EMAIL",
			Receiver:      *item.PayPalEmail,
			Amount: &paypalsdk.AmountPayout{
				Value:    minorToDecimal(item.Amount),
				Currency: item.Currency,
			},
			Note:         "Partner commission payout",
			SenderItemID: item.PayoutID.String(),
		})
	}

	payout := paypalsdk.Payout{
		SenderBatchHeader: &paypalsdk.SenderBatchHeader{
			SenderBatchID: notification.InvoiceID.String(),
			EmailSubject:  "You have a payout",
		},
		Items: batchItems,
	}

	response, err := r.client.CreatePayout(ctx, payout)
	if err != nil {
		for _, item := range items {
			r.metrics.IncTransferDispatched(r.Name(), "error")
			result.Failed = append(result.Failed, item.PayoutID)
		}
		result.Err = r.rollback(ctx, notification, result.Failed, err)
		return result
	}

	for _, item := range items {
		r.metrics.IncTransferDispatched(r.Name(), "ok")
		result.Dispatched = append(result.Dispatched, item.PayoutID)
	}

	// Completion is confirmed out-of-band by PayPal; log acceptance only.
	r.log.Info("paypal batch accepted",
		zap.String("invoice_id", notification.InvoiceID.String()),
		zap.String("batch_id", response.BatchHeader.PayoutBatchID),
		zap.String("batch_status", response.BatchHeader.BatchStatus),
		zap.Int("items", len(items)),
	)
	return result
}

func (r *Rail) rollback(ctx context.Context, notification domain.Notification, ids []snowflake.ID, cause error) error {
	r.log.Warn("paypal batch rejected, rolling payouts back to pending",
		zap.String("invoice_id", notification.InvoiceID.String()),
		zap.Int("items", len(ids)),
		zap.Error(cause),
	)

	if err := r.payoutRepo.ResetToPending(ctx, r.db, ids, r.clock.Now()); err != nil {
		return fmt.Errorf("rollback paypal batch: %w", err)
	}
	if err := r.store.Schedule(ctx, notification, r.cfg.SettlementRetryDelay); err != nil {
		return fmt.Errorf("schedule settlement retry: %w", err)
	}
	return cause
}

// minorToDecimal renders integer minor units as the decimal string PayPal
// expects.
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
