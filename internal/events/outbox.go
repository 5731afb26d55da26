package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/pkg/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidEvent = errors.New("invalid_event")

// Outbox persists events in the caller's transaction so side effects commit
// atomically with the state change that caused them.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock func() time.Time
}

func NewOutbox(gdb *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{
		db:    gdb,
		genID: genID,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Publish inserts the event outside any caller transaction.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.PublishTx(ctx, o.db, event)
}

// PublishTx inserts the event using the provided transaction handle. A
// duplicate dedupe key is treated as already published.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if strings.TrimSpace(event.Type) == "" {
		return ErrInvalidEvent
	}

	var dedupeKey *string
	if key := strings.TrimSpace(event.DedupeKey); key != "" {
		dedupeKey = &key
	}

	now := o.clock()
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO outbox_messages (id, type, payload, dedupe_key, attempts, available_at, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		o.genID.Generate(),
		event.Type,
		datatypes.JSONMap(event.Payload),
		dedupeKey,
		now,
		now,
	).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}
