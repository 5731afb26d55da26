package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeUser   ActorType = "user"
)

type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"column:id;primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"column:actor_type"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"column:actor_id"`
	Action     string            `json:"action" gorm:"column:action"`
	TargetType string            `json:"target_type" gorm:"column:target_type"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"column:target_id"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	IPAddress  *string           `json:"ip,omitempty" gorm:"column:ip"`
	UserAgent  *string           `json:"user_agent,omitempty" gorm:"column:user_agent"`
	CreatedAt  time.Time         `json:"created_at" gorm:"column:created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
