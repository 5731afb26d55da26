package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	settlementdomain "github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Retry is a persisted settlement re-attempt. The notification fields are
// kept on the row so the runner can rebuild the original trigger.
type Retry struct {
	ID                snowflake.ID `gorm:"column:id;primaryKey"`
	InvoiceID         snowflake.ID `gorm:"column:invoice_id"`
	ChargeID          *string      `gorm:"column:charge_id"`
	ReceiptURL        *string      `gorm:"column:receipt_url"`
	ACHCreditTransfer bool         `gorm:"column:ach_credit_transfer"`
	RunAt             time.Time    `gorm:"column:run_at"`
	Attempts          int          `gorm:"column:attempts"`
	LastError         *string      `gorm:"column:last_error"`
	CompletedAt       *time.Time   `gorm:"column:completed_at"`
	CreatedAt         time.Time    `gorm:"column:created_at"`
}

func (Retry) TableName() string {
	return "settlement_retries"
}

// Store schedules settlement retries. Rails call it when a batch must be
// re-attempted later.
type Store struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewStore(gdb *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock, m *metrics.Metrics) *Store {
	return &Store{
		db:      gdb,
		log:     log.Named("scheduler.store"),
		genID:   genID,
		clock:   clk,
		metrics: m,
	}
}

func (s *Store) Schedule(ctx context.Context, notification settlementdomain.Notification, delay time.Duration) error {
	now := s.clock.Now()
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO settlement_retries (id, invoice_id, charge_id, receipt_url, ach_credit_transfer, run_at, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		s.genID.Generate(),
		notification.InvoiceID,
		notification.ChargeID,
		notification.ReceiptURL,
		notification.ACHCreditTransfer,
		now.Add(delay),
		now,
	).Error
	if err != nil {
		return err
	}

	s.metrics.IncRetryScheduled()
	s.log.Info("settlement retry scheduled",
		zap.String("invoice_id", notification.InvoiceID.String()),
		zap.Duration("delay", delay),
	)
	return nil
}
