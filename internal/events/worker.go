package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	"github.com/smallbiznis/partnerpay/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler consumes one outbox message. A returned error reschedules the
// message with backoff.
type Handler func(ctx context.Context, msg Message) error

const maxAttempts = 10

// Worker drains the outbox. Handlers are registered per message type before
// the run loop starts.
type Worker struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	metrics      *metrics.Metrics
	pollInterval time.Duration
	batchSize    int

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewWorker(gdb *gorm.DB, log *zap.Logger, clk clock.Clock, m *metrics.Metrics, pollInterval time.Duration, batchSize int) *Worker {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Worker{
		db:           gdb,
		log:          log.Named("events.worker"),
		clock:        clk,
		metrics:      m,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		handlers:     map[string]Handler{},
	}
}

// Register binds a handler to a message type. Later registrations replace
// earlier ones.
func (w *Worker) Register(msgType string, handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[msgType] = handler
}

func (w *Worker) handler(msgType string) (Handler, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[msgType]
	return h, ok
}

// RunOnce claims one batch of due messages and dispatches them. Tests call
// this directly instead of waiting on the poll loop.
func (w *Worker) RunOnce(ctx context.Context) error {
	now := w.clock.Now()

	var batch []Message
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT * FROM outbox_messages
			WHERE processed_at IS NULL AND available_at <= ? AND attempts < ?
			ORDER BY available_at ASC
			LIMIT ?`
		if clause := db.LockClause(tx); clause != "" {
			query += " " + clause
		}
		if err := tx.Raw(query, now, maxAttempts, w.batchSize).Scan(&batch).Error; err != nil {
			return err
		}
		// Push availability forward inside the claim transaction so a
		// concurrent worker does not pick up the same rows.
		for i := range batch {
			if err := tx.Exec(
				`UPDATE outbox_messages SET available_at = ? WHERE id = ?`,
				now.Add(w.pollInterval*4), batch[i].ID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var runErr error
	for _, msg := range batch {
		if ctx.Err() != nil {
			return errors.Join(runErr, ctx.Err())
		}
		runErr = errors.Join(runErr, w.dispatch(ctx, msg))
	}
	return runErr
}

func (w *Worker) dispatch(ctx context.Context, msg Message) error {
	handler, ok := w.handler(msg.Type)
	if !ok {
		w.log.Warn("no handler for outbox message", zap.String("type", msg.Type), zap.String("id", msg.ID.String()))
		return w.fail(ctx, msg, fmt.Errorf("no handler for type %s", msg.Type))
	}

	if err := handler(ctx, msg); err != nil {
		w.metrics.IncOutboxDelivery(msg.Type, "error")
		w.log.Warn("outbox handler failed",
			zap.String("type", msg.Type),
			zap.String("id", msg.ID.String()),
			zap.Int("attempts", msg.Attempts),
			zap.Error(err),
		)
		return w.fail(ctx, msg, err)
	}

	w.metrics.IncOutboxDelivery(msg.Type, "ok")
	now := w.clock.Now()
	return w.db.WithContext(ctx).Exec(
		`UPDATE outbox_messages SET processed_at = ?, last_error = NULL WHERE id = ?`,
		now, msg.ID,
	).Error
}

func (w *Worker) fail(ctx context.Context, msg Message, cause error) error {
	attempts := msg.Attempts + 1
	nextAt := w.clock.Now().Add(backoff(attempts))
	lastError := cause.Error()
	if err := w.db.WithContext(ctx).Exec(
		`UPDATE outbox_messages SET attempts = ?, available_at = ?, last_error = ? WHERE id = ?`,
		attempts, nextAt, lastError, msg.ID,
	).Error; err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// backoff doubles per attempt from 5s up to a 10m cap.
func backoff(attempts int) time.Duration {
	d := 5 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return d
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("outbox run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
