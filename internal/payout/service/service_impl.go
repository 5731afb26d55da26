package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/clock"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  payoutdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  payoutdomain.Repository
}

func NewService(p Params) payoutdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payout.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

type aggregateRow struct {
	Total    int64 `gorm:"column:total"`
	Quantity int64 `gorm:"column:quantity"`
}

// Reconcile recomputes a payout's amount from its attached commissions.
// Duplicate and fraudulent commissions never count toward the total. A payout
// whose total drops to zero is removed; completed payouts are left alone.
func (s *Service) Reconcile(ctx context.Context, payoutID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err := s.repo.FindByID(ctx, tx, payoutID)
		if err != nil {
			if errors.Is(err, payoutdomain.ErrPayoutNotFound) {
				s.log.Info("payout already gone, skipping reconcile",
					zap.String("payout_id", payoutID.String()),
				)
				return nil
			}
			return err
		}
		if payout.Status == payoutdomain.PayoutStatusCompleted {
			return nil
		}

		var agg aggregateRow
		if err := tx.Raw(
			`SELECT COALESCE(SUM(earnings), 0) AS total, COUNT(*) AS quantity
			 FROM commissions
			 WHERE payout_id = ? AND status NOT IN (?, ?)`,
			payoutID, "duplicate", "fraudulent",
		).Scan(&agg).Error; err != nil {
			return err
		}

		if agg.Total <= 0 {
			s.log.Info("payout drained, deleting",
				zap.String("payout_id", payoutID.String()),
			)
			return s.repo.Delete(ctx, tx, payoutID)
		}

		return s.repo.UpdateAmount(ctx, tx, payoutID, agg.Total, agg.Quantity, s.now())
	})
}

func (s *Service) now() time.Time {
	return s.clock.Now()
}
