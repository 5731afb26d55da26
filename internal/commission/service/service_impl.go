package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/clock"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/events"
	"github.com/smallbiznis/partnerpay/internal/fxrate"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	programdomain "github.com/smallbiznis/partnerpay/internal/program/domain"
	rewarddomain "github.com/smallbiznis/partnerpay/internal/reward/domain"
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
	Repo        commissiondomain.Repository
	PayoutRepo  payoutdomain.Repository
	ProgramRepo programdomain.Repository
	RewardSvc   rewarddomain.Service
	FXRate      fxrate.Service
	Outbox      *events.Outbox
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics
	repo        commissiondomain.Repository
	payoutRepo  payoutdomain.Repository
	programRepo programdomain.Repository
	rewardSvc   rewarddomain.Service
	fxRate      fxrate.Service
	outbox      *events.Outbox
}

func NewService(p Params) commissiondomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		payoutRepo:  p.PayoutRepo,
		programRepo: p.ProgramRepo,
		rewardSvc:   p.RewardSvc,
		fxRate:      p.FXRate,
		outbox:      p.Outbox,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*commissiondomain.Commission, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

// Update applies an amount correction or status change to a commission. Paid
// commissions are immutable. The row update and its side-effect events commit
// in one transaction; a reconcile of the attached payout is delivered
// asynchronously through the outbox.
func (s *Service) Update(ctx context.Context, req commissiondomain.UpdateCommissionRequest) (*commissiondomain.Commission, error) {
	commission, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		s.metrics.IncCommissionMutation("not_found")
		return nil, err
	}

	if commission.Status == commissiondomain.StatusPaid {
		s.metrics.IncCommissionMutation("rejected_paid")
		return nil, commissiondomain.ErrCommissionPaid
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			s.metrics.IncCommissionMutation("rejected_status")
			return nil, commissiondomain.ErrInvalidStatus
		}
		if *req.Status == commissiondomain.StatusPaid {
			s.metrics.IncCommissionMutation("rejected_paid")
			return nil, commissiondomain.ErrCommissionPaid
		}
	}

	amountChange := req.Amount != nil || req.ModifyAmount != nil
	if amountChange && commission.Type != commissiondomain.TypeSale {
		s.metrics.IncCommissionMutation("rejected_not_sale")
		return nil, commissiondomain.ErrNotSaleCommission
	}

	program, err := s.programRepo.FindProgram(ctx, s.db, commission.ProgramID)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	modifyAmount := req.ModifyAmount
	if currency := strings.ToUpper(strings.TrimSpace(req.Currency)); currency != "" && currency != program.Currency {
		if amount != nil {
			converted, err := s.fxRate.Convert(ctx, *amount, currency, program.Currency)
			if err != nil {
				s.metrics.IncCommissionMutation("fx_failed")
				return nil, err
			}
			amount = &converted
		}
		if modifyAmount != nil {
			converted, err := s.fxRate.Convert(ctx, *modifyAmount, currency, program.Currency)
			if err != nil {
				s.metrics.IncCommissionMutation("fx_failed")
				return nil, err
			}
			modifyAmount = &converted
		}
	}

	finalAmount := commission.Amount
	switch {
	case modifyAmount != nil:
		finalAmount = commission.Amount + *modifyAmount
	case amount != nil:
		finalAmount = *amount
	}
	if finalAmount < 0 {
		finalAmount = 0
	}

	reward, err := s.rewardSvc.Resolve(ctx, commission.ProgramID, commission.PartnerID, rewarddomain.RewardEvent(commission.Type))
	if err != nil {
		s.metrics.IncCommissionMutation("reward_missing")
		return nil, err
	}
	finalEarnings := rewarddomain.ComputeEarnings(reward, finalAmount, commission.Quantity)
	if finalEarnings < 0 {
		finalEarnings = 0
	}

	isRefunded := finalAmount == 0 || finalEarnings == 0

	before := *commission

	commission.Amount = finalAmount
	commission.Earnings = finalEarnings
	switch {
	case req.Status != nil:
		commission.Status = *req.Status
	case isRefunded:
		commission.Status = commissiondomain.StatusRefunded
	}
	if isRefunded || req.Status != nil {
		commission.PayoutID = nil
	}
	commission.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, commission); err != nil {
			return err
		}

		if before.PayoutID != nil {
			attached, err := s.payoutRepo.FindByID(ctx, tx, *before.PayoutID)
			if err == nil && attached.Status == payoutdomain.PayoutStatusProcessed {
				if err := s.outbox.PublishTx(ctx, tx, events.Event{
					Type: events.EventPayoutRecompute,
					Payload: map[string]any{
						"payout_id": before.PayoutID.String(),
					},
					DedupeKey: "payout.recompute:" + before.PayoutID.String() + ":" + commission.UpdatedAt.Format(time.RFC3339Nano),
				}); err != nil {
					return err
				}
			}
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventAuditRecord,
			Payload: map[string]any{
				"actor_type":  "system",
				"action":      "commission.updated",
				"target_type": "commission",
				"target_id":   commission.ID.String(),
				"metadata": map[string]any{
					"amount_before":   before.Amount,
					"amount_after":    commission.Amount,
					"earnings_before": before.Earnings,
					"earnings_after":  commission.Earnings,
					"status_before":   string(before.Status),
					"status_after":    string(commission.Status),
				},
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCommissionMutation("ok")
	s.log.Info("commission updated",
		zap.String("commission_id", commission.ID.String()),
		zap.Int64("amount", commission.Amount),
		zap.Int64("earnings", commission.Earnings),
		zap.String("status", string(commission.Status)),
	)
	return commission, nil
}
