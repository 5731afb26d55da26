package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrRewardNotFound = errors.New("reward_not_found")

type RewardEvent string

const (
	RewardEventSale  RewardEvent = "sale"
	RewardEventLead  RewardEvent = "lead"
	RewardEventClick RewardEvent = "click"
)

type RewardType string

const (
	RewardTypeFlat       RewardType = "flat"
	RewardTypePercentage RewardType = "percentage"
)

// Reward is the payout rule for an event. A nil GroupID marks the program
// default; group-specific rows override it.
type Reward struct {
	ID        snowflake.ID  `json:"id" gorm:"column:id;primaryKey"`
	ProgramID snowflake.ID  `json:"program_id" gorm:"column:program_id"`
	GroupID   *snowflake.ID `json:"group_id,omitempty" gorm:"column:group_id"`
	Event     RewardEvent   `json:"event" gorm:"column:event"`
	Type      RewardType    `json:"type" gorm:"column:type"`
	Amount    int64         `json:"amount" gorm:"column:amount"`
	CreatedAt time.Time     `json:"created_at" gorm:"column:created_at"`
}

func (Reward) TableName() string {
	return "rewards"
}

// ComputeEarnings derives partner earnings in minor units. Flat rewards pay
// Amount per unit; percentage rewards take a whole-percent cut of the sale
// amount, floored by integer division.
func ComputeEarnings(reward *Reward, amount, quantity int64) int64 {
	if reward == nil {
		return 0
	}
	switch reward.Type {
	case RewardTypePercentage:
		return amount * reward.Amount / 100
	default:
		return reward.Amount * quantity
	}
}

type Service interface {
	Resolve(ctx context.Context, programID, partnerID snowflake.ID, event RewardEvent) (*Reward, error)
}

type Repository interface {
	FindForGroup(ctx context.Context, db *gorm.DB, programID snowflake.ID, groupID *snowflake.ID, event RewardEvent) (*Reward, error)
}
