package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrCommissionNotFound = errors.New("commission_not_found")
	ErrCommissionPaid     = errors.New("commission_paid")
	ErrNotSaleCommission  = errors.New("not_sale_commission")
	ErrInvalidStatus      = errors.New("invalid_commission_status")
)

type CommissionStatus string

const (
	StatusPending    CommissionStatus = "pending"
	StatusProcessed  CommissionStatus = "processed"
	StatusPaid       CommissionStatus = "paid"
	StatusRefunded   CommissionStatus = "refunded"
	StatusDuplicate  CommissionStatus = "duplicate"
	StatusCanceled   CommissionStatus = "canceled"
	StatusFraudulent CommissionStatus = "fraudulent"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusPaid, StatusRefunded,
		StatusDuplicate, StatusCanceled, StatusFraudulent:
		return true
	}
	return false
}

type CommissionType string

const (
	TypeClick CommissionType = "click"
	TypeLead  CommissionType = "lead"
	TypeSale  CommissionType = "sale"
)

// Commission is one earned reward event in the ledger.
type Commission struct {
	ID         snowflake.ID     `json:"id" gorm:"column:id;primaryKey"`
	ProgramID  snowflake.ID     `json:"program_id" gorm:"column:program_id"`
	PartnerID  snowflake.ID     `json:"partner_id" gorm:"column:partner_id"`
	CustomerID *snowflake.ID    `json:"customer_id,omitempty" gorm:"column:customer_id"`
	LinkID     *snowflake.ID    `json:"link_id,omitempty" gorm:"column:link_id"`
	Type       CommissionType   `json:"type" gorm:"column:type"`
	Amount     int64            `json:"amount" gorm:"column:amount"`
	Earnings   int64            `json:"earnings" gorm:"column:earnings"`
	Quantity   int64            `json:"quantity" gorm:"column:quantity"`
	Currency   string           `json:"currency" gorm:"column:currency"`
	Status     CommissionStatus `json:"status" gorm:"column:status"`
	PayoutID   *snowflake.ID    `json:"payout_id,omitempty" gorm:"column:payout_id"`
	CreatedAt  time.Time        `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time        `json:"updated_at" gorm:"column:updated_at"`
}

func (Commission) TableName() string {
	return "commissions"
}

// UpdateCommissionRequest mutates a commission after the fact: a corrected
// sale amount, a delta on the original amount, or an operator status change.
type UpdateCommissionRequest struct {
	ID           snowflake.ID
	Amount       *int64
	ModifyAmount *int64
	Currency     string
	Status       *CommissionStatus
}

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (*Commission, error)
	Update(ctx context.Context, req UpdateCommissionRequest) (*Commission, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	Update(ctx context.Context, db *gorm.DB, commission *Commission) error
}
