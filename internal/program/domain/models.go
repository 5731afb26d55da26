package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrProgramNotFound    = errors.New("program_not_found")
	ErrEnrollmentNotFound = errors.New("enrollment_not_found")
)

type Program struct {
	ID                snowflake.ID `json:"id" gorm:"column:id;primaryKey"`
	Name              string       `json:"name" gorm:"column:name"`
	Currency          string       `json:"currency" gorm:"column:currency"`
	HoldingPeriodDays int          `json:"holding_period_days" gorm:"column:holding_period_days"`
	MinPayoutAmount   int64        `json:"min_payout_amount" gorm:"column:min_payout_amount"`
	CreatedAt         time.Time    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time    `json:"updated_at" gorm:"column:updated_at"`
}

func (Program) TableName() string {
	return "programs"
}

// Enrollment ties a partner to a program and optionally to a reward group.
type Enrollment struct {
	ID        snowflake.ID  `json:"id" gorm:"column:id;primaryKey"`
	ProgramID snowflake.ID  `json:"program_id" gorm:"column:program_id"`
	PartnerID snowflake.ID  `json:"partner_id" gorm:"column:partner_id"`
	GroupID   *snowflake.ID `json:"group_id,omitempty" gorm:"column:group_id"`
	Status    string        `json:"status" gorm:"column:status"`
	CreatedAt time.Time     `json:"created_at" gorm:"column:created_at"`
}

func (Enrollment) TableName() string {
	return "program_enrollments"
}

type Repository interface {
	FindProgram(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Program, error)
	FindEnrollment(ctx context.Context, db *gorm.DB, programID, partnerID snowflake.ID) (*Enrollment, error)
}
