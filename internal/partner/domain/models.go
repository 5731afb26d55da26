package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrPartnerNotFound = errors.New("partner_not_found")

type Partner struct {
	ID              snowflake.ID `json:"id" gorm:"column:id;primaryKey"`
	Name            string       `json:"name" gorm:"column:name"`
	Email           string       `json:"email" gorm:"column:email"`
	Country         *string      `json:"country,omitempty" gorm:"column:country"`
	StripeConnectID *string      `json:"stripe_connect_id,omitempty" gorm:"column:stripe_connect_id"`
	PayPalEmail     *string      `json:"paypal_email,omitempty" gorm:"column:paypal_email"`
	CreatedAt       time.Time    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"column:updated_at"`
}

func (Partner) TableName() string {
	return "partners"
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Partner, error)
}
