package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/partnerpay/internal/clock"
	settlementdomain "github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"github.com/smallbiznis/partnerpay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Dispatcher settlementdomain.Dispatcher
	Config     Config `optional:"true"`
}

// Runner claims due settlement retries and re-invokes the dispatcher.
type Runner struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	dispatcher settlementdomain.Dispatcher
}

func New(p Params) (*Runner, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Dispatcher == nil {
		return nil, ErrInvalidConfig
	}
	return &Runner{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "settlement_retry")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		dispatcher: p.Dispatcher,
	}, nil
}

// RunOnce claims one batch of due retries and dispatches each. Failed
// attempts are pushed out by the configured retry delay.
func (r *Runner) RunOnce(ctx context.Context) error {
	now := r.clock.Now()

	var due []Retry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT * FROM settlement_retries
			WHERE completed_at IS NULL AND run_at <= ?
			ORDER BY run_at ASC
			LIMIT ?`
		if clause := db.LockClause(tx); clause != "" {
			query += " " + clause
		}
		if err := tx.Raw(query, now, r.cfg.BatchSize).Scan(&due).Error; err != nil {
			return err
		}
		for i := range due {
			if err := tx.Exec(
				`UPDATE settlement_retries SET run_at = ? WHERE id = ?`,
				now.Add(r.cfg.RetryDelay), due[i].ID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var runErr error
	for _, retry := range due {
		if ctx.Err() != nil {
			return errors.Join(runErr, ctx.Err())
		}
		runErr = errors.Join(runErr, r.process(ctx, retry))
	}
	return runErr
}

func (r *Runner) process(ctx context.Context, retry Retry) error {
	notification := settlementdomain.Notification{
		InvoiceID:         retry.InvoiceID,
		ACHCreditTransfer: retry.ACHCreditTransfer,
	}
	if retry.ChargeID != nil {
		notification.ChargeID = *retry.ChargeID
	}
	if retry.ReceiptURL != nil {
		notification.ReceiptURL = *retry.ReceiptURL
	}

	log := r.log.With(
		zap.String("retry_id", retry.ID.String()),
		zap.String("invoice_id", retry.InvoiceID.String()),
		zap.Int("attempts", retry.Attempts),
	)

	if err := r.dispatcher.Dispatch(ctx, notification); err != nil {
		lastError := err.Error()
		log.Warn("settlement retry failed, rescheduled", zap.Error(err))
		if updateErr := r.db.WithContext(ctx).Exec(
			`UPDATE settlement_retries SET attempts = ?, last_error = ?, run_at = ? WHERE id = ?`,
			retry.Attempts+1, lastError, r.clock.Now().Add(r.cfg.RetryDelay), retry.ID,
		).Error; updateErr != nil {
			return errors.Join(err, updateErr)
		}
		return err
	}

	log.Info("settlement retry completed")
	return r.db.WithContext(ctx).Exec(
		`UPDATE settlement_retries SET completed_at = ?, last_error = NULL WHERE id = ?`,
		r.clock.Now(), retry.ID,
	).Error
}

func (r *Runner) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("settlement retry run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
