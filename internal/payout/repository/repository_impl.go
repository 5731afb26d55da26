package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/payout/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payout, error) {
	var payout domain.Payout
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM payouts WHERE id = ? LIMIT 1`, id,
	).Scan(&payout).Error
	if err != nil {
		return nil, err
	}
	if payout.ID == 0 {
		return nil, domain.ErrPayoutNotFound
	}
	return &payout, nil
}

func (r *repo) ListByInvoiceForSettlement(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.SettlementItem, error) {
	var items []domain.SettlementItem
	err := db.WithContext(ctx).Raw(
		`SELECT
			po.id AS payout_id,
			po.partner_id AS partner_id,
			pa.name AS partner_name,
			pa.email AS partner_email,
			pa.stripe_connect_id AS stripe_connect_id,
			pa.paypal_email AS paypal_email,
			po.amount AS amount,
			pr.currency AS currency
		 FROM payouts po
		 JOIN partners pa ON pa.id = po.partner_id
		 JOIN programs pr ON pr.id = po.program_id
		 WHERE po.invoice_id = ? AND po.status <> ?
		 ORDER BY po.id ASC`,
		invoiceID, domain.PayoutStatusCompleted,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amount, quantity int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payouts SET amount = ?, quantity = ?, updated_at = ? WHERE id = ?`,
		amount, quantity, now, id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`UPDATE commissions SET payout_id = NULL WHERE payout_id = ?`, id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM payouts WHERE id = ?`, id,
	).Error
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payouts SET status = ?, paid_at = ?, updated_at = ? WHERE id = ?`,
		domain.PayoutStatusCompleted, paidAt, paidAt, id,
	).Error
}

func (r *repo) MarkCommissionsPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commissions SET status = 'paid', updated_at = ? WHERE payout_id = ?`,
		paidAt, payoutID,
	).Error
}

func (r *repo) ResetToPending(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE payouts SET status = ?, invoice_id = NULL, updated_at = ? WHERE id IN ?`,
		domain.PayoutStatusPending, now, ids,
	).Error
}
