package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrPayoutNotFound  = errors.New("payout_not_found")
	ErrPayoutCompleted = errors.New("payout_completed")
)

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusProcessed PayoutStatus = "processed"
	PayoutStatusCompleted PayoutStatus = "completed"
)

// Payout aggregates a partner's commission earnings for one settlement
// period. Completed payouts are terminal.
type Payout struct {
	ID          snowflake.ID  `json:"id" gorm:"column:id;primaryKey"`
	ProgramID   snowflake.ID  `json:"program_id" gorm:"column:program_id"`
	PartnerID   snowflake.ID  `json:"partner_id" gorm:"column:partner_id"`
	InvoiceID   *snowflake.ID `json:"invoice_id,omitempty" gorm:"column:invoice_id"`
	Amount      int64         `json:"amount" gorm:"column:amount"`
	Status      PayoutStatus  `json:"status" gorm:"column:status"`
	Type        string        `json:"type" gorm:"column:type"`
	PeriodStart *time.Time    `json:"period_start,omitempty" gorm:"column:period_start"`
	PeriodEnd   *time.Time    `json:"period_end,omitempty" gorm:"column:period_end"`
	Quantity    int64         `json:"quantity" gorm:"column:quantity"`
	PaidAt      *time.Time    `json:"paid_at,omitempty" gorm:"column:paid_at"`
	CreatedAt   time.Time     `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"column:updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}

// SettlementItem is a payout joined with the partner and program details a
// settlement rail needs to move money.
type SettlementItem struct {
	PayoutID        snowflake.ID `gorm:"column:payout_id"`
	PartnerID       snowflake.ID `gorm:"column:partner_id"`
	PartnerName     string       `gorm:"column:partner_name"`
	PartnerEmail    string       `gorm:"column:partner_email"`
	StripeConnectID *string      `gorm:"column:stripe_connect_id"`
	PayPalEmail     *string      `gorm:"column:paypal_email"`
	Amount          int64        `gorm:"column:amount"`
	Currency        string       `gorm:"column:currency"`
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payout, error)
	ListByInvoiceForSettlement(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]SettlementItem, error)
	UpdateAmount(ctx context.Context, db *gorm.DB, id snowflake.ID, amount, quantity int64, now time.Time) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error
	MarkCommissionsPaid(ctx context.Context, db *gorm.DB, payoutID snowflake.ID, paidAt time.Time) error
	ResetToPending(ctx context.Context, db *gorm.DB, ids []snowflake.ID, now time.Time) error
}

// Service recomputes payout aggregates after ledger mutations.
type Service interface {
	Reconcile(ctx context.Context, payoutID snowflake.ID) error
}
