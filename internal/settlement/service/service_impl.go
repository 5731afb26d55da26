package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/config"
	invoicedomain "github.com/smallbiznis/partnerpay/internal/invoice/domain"
	"github.com/smallbiznis/partnerpay/internal/locks"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/settlement/domain"
	paypalrail "github.com/smallbiznis/partnerpay/internal/settlement/rails/paypal"
	striperail "github.com/smallbiznis/partnerpay/internal/settlement/rails/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Metrics     *metrics.Metrics
	Config      config.Config
	Locker      *locks.Locker `optional:"true"`
	InvoiceRepo invoicedomain.Repository
	PayoutRepo  payoutdomain.Repository
	StripeRail  *striperail.Rail
	PayPalRail  *paypalrail.Rail
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics
	cfg         config.Config
	locker      *locks.Locker
	invoiceRepo invoicedomain.Repository
	payoutRepo  payoutdomain.Repository
	stripeRail  *striperail.Rail
	paypalRail  *paypalrail.Rail
}

func NewService(p Params) domain.Dispatcher {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("settlement.dispatcher"),
		clock:       p.Clock,
		metrics:     p.Metrics,
		cfg:         p.Config,
		locker:      p.Locker,
		invoiceRepo: p.InvoiceRepo,
		payoutRepo:  p.PayoutRepo,
		stripeRail:  p.StripeRail,
		paypalRail:  p.PayPalRail,
	}
}

// Dispatch runs one settlement pass for the invoice named in the
// notification. The run is idempotent: completed invoices and already-settled
// payouts are skipped, so redeliveries converge on the same terminal state.
func (s *Service) Dispatch(ctx context.Context, notification domain.Notification) error {
	start := s.clock.Now()
	log := s.log.With(
		zap.String("invoice_id", notification.InvoiceID.String()),
		zap.String("charge_id", notification.ChargeID),
	)

	if s.locker != nil {
		key := locks.InvoiceKey(int64(notification.InvoiceID))
		token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.SettlementLockTTL)
		if err != nil {
			log.Warn("settlement lock unavailable, proceeding unguarded", zap.Error(err))
		} else if !acquired {
			log.Info("settlement already in progress, skipping")
			s.metrics.ObserveSettlementRun("locked", s.clock.Now().Sub(start))
			return nil
		} else {
			defer func() {
				if err := s.locker.Release(ctx, key, token); err != nil {
					log.Warn("failed to release settlement lock", zap.Error(err))
				}
			}()
		}
	} else {
		log.Warn("settlement locking disabled, proceeding unguarded")
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, s.db, notification.InvoiceID)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
			log.Info("unknown invoice, waiting for redelivery")
			s.metrics.ObserveSettlementRun("unknown_invoice", s.clock.Now().Sub(start))
			return nil
		}
		return err
	}
	if invoice.Status == invoicedomain.InvoiceStatusCompleted {
		log.Info("invoice already settled, skipping")
		s.metrics.ObserveSettlementRun("already_settled", s.clock.Now().Sub(start))
		return nil
	}

	items, err := s.payoutRepo.ListByInvoiceForSettlement(ctx, s.db, invoice.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		log.Info("no open payouts for invoice, skipping")
		s.metrics.ObserveSettlementRun("empty", s.clock.Now().Sub(start))
		return nil
	}

	stripeItems, paypalItems := partition(items, log)

	var runErr error
	if len(stripeItems) > 0 {
		result := s.stripeRail.Dispatch(ctx, notification, stripeItems)
		if result.Err != nil || len(result.Failed) > 0 {
			runErr = errors.Join(runErr, fmt.Errorf("%w: %s failed %d of %d transfers",
				domain.ErrRailFailed, s.stripeRail.Name(), len(result.Failed), len(stripeItems)))
			if result.Err != nil {
				runErr = errors.Join(runErr, result.Err)
			}
		}
	}
	if len(paypalItems) > 0 {
		result := s.paypalRail.Dispatch(ctx, notification, paypalItems)
		if result.Err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("%w: %s batch rejected", domain.ErrRailFailed, s.paypalRail.Name()))
			runErr = errors.Join(runErr, result.Err)
		}
	}

	if runErr != nil {
		log.Warn("settlement incomplete, invoice left open for redelivery", zap.Error(runErr))
		s.metrics.ObserveSettlementRun("partial_failure", s.clock.Now().Sub(start))
		return runErr
	}

	now := s.clock.Now()
	if err := s.invoiceRepo.MarkCompleted(ctx, s.db, invoice.ID, notification.ChargeID, notification.ReceiptURL, now); err != nil {
		return err
	}

	log.Info("settlement completed",
		zap.Int("stripe_payouts", len(stripeItems)),
		zap.Int("paypal_payouts", len(paypalItems)),
	)
	s.metrics.ObserveSettlementRun("ok", s.clock.Now().Sub(start))
	return nil
}

// partition routes each payout to the rail its partner is provisioned for.
// A connected Stripe account wins over a PayPal email; partners with neither
// are skipped and logged.
func partition(items []payoutdomain.SettlementItem, log *zap.Logger) (stripeItems, paypalItems []payoutdomain.SettlementItem) {
	for _, item := range items {
		switch {
		case item.StripeConnectID != nil && *item.StripeConnectID != "":
			stripeItems = append(stripeItems, item)
		case item.PayPalEmail != nil && *item.PayPalEmail != "":
			paypalItems = append(paypalItems, item)
		default:
			log.Warn("partner has no payout destination, skipping",
				zap.String("payout_id", item.PayoutID.String()),
				zap.String("partner_id", item.PartnerID.String()),
			)
		}
	}
	return stripeItems, paypalItems
}
