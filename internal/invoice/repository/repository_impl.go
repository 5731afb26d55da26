package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invoices WHERE id = ? LIMIT 1`, id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, domain.ErrInvoiceNotFound
	}
	return &invoice, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID, receiptURL string, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, charge_id = ?, receipt_url = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		domain.InvoiceStatusCompleted, chargeID, receiptURL, paidAt, paidAt, id,
	).Error
}
