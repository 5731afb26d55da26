package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event is what producers publish. DedupeKey deduplicates redeliveries of the
// same logical event across transactions.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

const (
	EventPayoutRecompute = "payout.recompute"
	EventAuditRecord     = "audit.record"
)

// Message is the persisted outbox row.
type Message struct {
	ID          snowflake.ID      `gorm:"column:id;primaryKey"`
	Type        string            `gorm:"column:type"`
	Payload     datatypes.JSONMap `gorm:"column:payload"`
	DedupeKey   *string           `gorm:"column:dedupe_key"`
	Attempts    int               `gorm:"column:attempts"`
	AvailableAt time.Time         `gorm:"column:available_at"`
	LastError   *string           `gorm:"column:last_error"`
	ProcessedAt *time.Time        `gorm:"column:processed_at"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
}

func (Message) TableName() string {
	return "outbox_messages"
}
