package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrInvoiceNotFound = errors.New("invoice_not_found")

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusCompleted InvoiceStatus = "completed"
)

// Invoice is the funding document a settlement run is keyed on. Completed
// invoices are terminal.
type Invoice struct {
	ID         snowflake.ID  `json:"id" gorm:"column:id;primaryKey"`
	ProgramID  snowflake.ID  `json:"program_id" gorm:"column:program_id"`
	Status     InvoiceStatus `json:"status" gorm:"column:status"`
	ChargeID   *string       `json:"charge_id,omitempty" gorm:"column:charge_id"`
	ReceiptURL *string       `json:"receipt_url,omitempty" gorm:"column:receipt_url"`
	PaidAt     *time.Time    `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt  time.Time     `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time     `json:"updated_at" gorm:"column:updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID, receiptURL string, paidAt time.Time) error
}
