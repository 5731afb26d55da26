package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	paypalsdk "github.com/plutov/paypal/v4"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/config"
	invoicedomain "github.com/smallbiznis/partnerpay/internal/invoice/domain"
	invoicerepository "github.com/smallbiznis/partnerpay/internal/invoice/repository"
	"github.com/smallbiznis/partnerpay/internal/notification"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	payoutrepository "github.com/smallbiznis/partnerpay/internal/payout/repository"
	"github.com/smallbiznis/partnerpay/internal/scheduler"
	"github.com/smallbiznis/partnerpay/internal/settlement/domain"
	paypalrail "github.com/smallbiznis/partnerpay/internal/settlement/rails/paypal"
	striperail "github.com/smallbiznis/partnerpay/internal/settlement/rails/stripe"
	stripesdk "github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeTransferCreator struct {
	created []*stripesdk.TransferParams
	err     error
}

func (f *fakeTransferCreator) New(params *stripesdk.TransferParams) (*stripesdk.Transfer, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, params)
	return &stripesdk.Transfer{ID: fmt.Sprintf("tr_%d", len(f.created))}, nil
}

type fakePayoutClient struct {
	received []paypalsdk.Payout
	err      error
}

func (f *fakePayoutClient) CreatePayout(ctx context.Context, payout paypalsdk.Payout) (*paypalsdk.PayoutResponse, error) {
	f.received = append(f.received, payout)
	if f.err != nil {
		return nil, f.err
	}
	return &paypalsdk.PayoutResponse{
		BatchHeader: &paypalsdk.BatchHeader{PayoutBatchID: "batch_1", BatchStatus: "PENDING"},
	}, nil
}

type noopSender struct{}

func (noopSender) SendPayoutPaid(ctx context.Context, event notification.PayoutPaid) error {
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	schema := []string{
		`CREATE TABLE programs (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'USD',
			holding_period_days INTEGER NOT NULL DEFAULT 0,
			min_payout_amount INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE partners (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			country TEXT,
			stripe_connect_id TEXT,
			paypal_email TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE invoices (
			id INTEGER PRIMARY KEY,
			program_id INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			charge_id TEXT,
			receipt_url TEXT,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE payouts (
			id INTEGER PRIMARY KEY,
			program_id INTEGER NOT NULL,
			partner_id INTEGER NOT NULL,
			invoice_id INTEGER,
			amount INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'processed',
			type TEXT NOT NULL DEFAULT 'sale',
			period_start DATETIME,
			period_end DATETIME,
			quantity INTEGER NOT NULL DEFAULT 0,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE commissions (
			id INTEGER PRIMARY KEY,
			program_id INTEGER NOT NULL,
			partner_id INTEGER NOT NULL,
			earnings INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'processed',
			payout_id INTEGER,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE settlement_retries (
			id INTEGER PRIMARY KEY,
			invoice_id INTEGER NOT NULL,
			charge_id TEXT,
			receipt_url TEXT,
			ach_credit_transfer BOOLEAN NOT NULL DEFAULT 0,
			run_at DATETIME NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			completed_at DATETIME,
			created_at DATETIME
		)`,
	}
	for _, stmt := range schema {
		if err := gdb.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return gdb
}

type dispatcherEnv struct {
	db        *gorm.DB
	svc       domain.Dispatcher
	transfers *fakeTransferCreator
	paypal    *fakePayoutClient
}

func newDispatcherEnv(t *testing.T) *dispatcherEnv {
	t.Helper()
	gdb := openTestDB(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{SettlementLockTTL: 2 * time.Minute, SettlementRetryDelay: 24 * time.Hour}
	payoutRepo := payoutrepository.Provide()

	transfers := &fakeTransferCreator{}
	stripeRail := striperail.NewRail(striperail.Params{
		DB:         gdb,
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		PayoutRepo: payoutRepo,
		Notifier:   noopSender{},
		Transfers:  transfers,
	})

	paypalClient := &fakePayoutClient{}
	store := scheduler.NewStore(gdb, zap.NewNop(), node, fakeClock, nil)
	paypalRail := paypalrail.NewRail(paypalrail.Params{
		DB:         gdb,
		Log:        zap.NewNop(),
		Clock:      fakeClock,
		Config:     cfg,
		PayoutRepo: payoutRepo,
		Store:      store,
		Client:     paypalClient,
	})

	svc := NewService(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		Config:      cfg,
		InvoiceRepo: invoicerepository.Provide(),
		PayoutRepo:  payoutRepo,
		StripeRail:  stripeRail,
		PayPalRail:  paypalRail,
	})

	return &dispatcherEnv{db: gdb, svc: svc, transfers: transfers, paypal: paypalClient}
}

func (e *dispatcherEnv) seedInvoice(t *testing.T, id snowflake.ID, status invoicedomain.InvoiceStatus) {
	t.Helper()
	if err := e.db.Exec(
		`INSERT INTO invoices (id, program_id, status) VALUES (?, 100, ?)`, id, status,
	).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
}

func (e *dispatcherEnv) seedPartner(t *testing.T, id snowflake.ID, stripeID, paypalEmail *string) {
	t.Helper()
	if err := e.db.Exec(
		`INSERT INTO partners (id, name, email, stripe_connect_id, paypal_email) VALUES (?, 'Partner', 'p@example.com', ?, ?)`,
		id, stripeID, paypalEmail,
	).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	if err := e.db.Exec(
		`INSERT OR IGNORE INTO programs (id, name, currency) VALUES (100, 'Affiliate', 'USD')`,
	).Error; err != nil {
		t.Fatalf("seed program: %v", err)
	}
}

func (e *dispatcherEnv) seedPayout(t *testing.T, id, partnerID, invoiceID snowflake.ID, amount int64) {
	t.Helper()
	if err := e.db.Exec(
		`INSERT INTO payouts (id, program_id, partner_id, invoice_id, amount, status) VALUES (?, 100, ?, ?, ?, 'processed')`,
		id, partnerID, invoiceID, amount,
	).Error; err != nil {
		t.Fatalf("seed payout: %v", err)
	}
}

func strptr(v string) *string { return &v }

func TestDispatchSettlesInvoiceAcrossRails(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusPending)
	env.seedPartner(t, 200, strptr("acct_1"), nil)
	env.seedPartner(t, 201, nil, strptr("b@example.com"))
	env.seedPayout(t, 5000, 200, 9000, 12500)
	env.seedPayout(t, 6000, 201, 9000, 999)

	trigger := domain.Notification{
		InvoiceID:  9000,
		ChargeID:   "ch_123",
		ReceiptURL: "https://pay.example.com/r/1",
	}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(env.transfers.created) != 1 {
		t.Fatalf("expected 1 stripe transfer, got %d", len(env.transfers.created))
	}
	if len(env.paypal.received) != 1 {
		t.Fatalf("expected 1 paypal batch, got %d", len(env.paypal.received))
	}

	var invoice invoicedomain.Invoice
	if err := env.db.Raw(`SELECT * FROM invoices WHERE id = 9000`).Scan(&invoice).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if invoice.Status != invoicedomain.InvoiceStatusCompleted {
		t.Fatalf("expected invoice completed, got %s", invoice.Status)
	}
	if invoice.ChargeID == nil || *invoice.ChargeID != "ch_123" {
		t.Fatalf("expected charge id recorded")
	}
}

func TestDispatchIsIdempotentForCompletedInvoice(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusCompleted)
	env.seedPartner(t, 200, strptr("acct_1"), nil)
	env.seedPayout(t, 5000, 200, 9000, 12500)

	trigger := domain.Notification{InvoiceID: 9000, ChargeID: "ch_123"}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(env.transfers.created) != 0 {
		t.Fatalf("expected no transfers for completed invoice, got %d", len(env.transfers.created))
	}
	if len(env.paypal.received) != 0 {
		t.Fatalf("expected no paypal batches, got %d", len(env.paypal.received))
	}
}

func TestDispatchUnknownInvoiceIsNoop(t *testing.T) {
	env := newDispatcherEnv(t)

	trigger := domain.Notification{InvoiceID: 9999, ChargeID: "ch_123"}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("expected nil for unknown invoice, got %v", err)
	}
}

func TestDispatchSkipsAlreadyCompletedPayouts(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusPending)
	env.seedPartner(t, 200, strptr("acct_1"), nil)
	env.seedPartner(t, 201, strptr("acct_2"), nil)
	env.seedPayout(t, 5000, 200, 9000, 12500)
	if err := env.db.Exec(
		`INSERT INTO payouts (id, program_id, partner_id, invoice_id, amount, status) VALUES (6000, 100, 201, 9000, 999, 'completed')`,
	).Error; err != nil {
		t.Fatalf("seed payout: %v", err)
	}

	trigger := domain.Notification{InvoiceID: 9000, ChargeID: "ch_123"}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(env.transfers.created) != 1 {
		t.Fatalf("expected only the open payout transferred, got %d", len(env.transfers.created))
	}
}

func TestDispatchLeavesInvoiceOpenOnRailFailure(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusPending)
	env.seedPartner(t, 200, strptr("acct_1"), nil)
	env.seedPayout(t, 5000, 200, 9000, 12500)
	env.transfers.err = errors.New("account disabled")

	trigger := domain.Notification{InvoiceID: 9000, ChargeID: "ch_123"}
	err := env.svc.Dispatch(context.Background(), trigger)
	if !errors.Is(err, domain.ErrRailFailed) {
		t.Fatalf("expected rail failure, got %v", err)
	}

	var invoice invoicedomain.Invoice
	if err := env.db.Raw(`SELECT * FROM invoices WHERE id = 9000`).Scan(&invoice).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if invoice.Status != invoicedomain.InvoiceStatusPending {
		t.Fatalf("expected invoice left open, got %s", invoice.Status)
	}
}

func TestDispatchSkipsPartnersWithoutDestination(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusPending)
	env.seedPartner(t, 200, nil, nil)
	env.seedPayout(t, 5000, 200, 9000, 12500)

	trigger := domain.Notification{InvoiceID: 9000, ChargeID: "ch_123"}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(env.transfers.created) != 0 || len(env.paypal.received) != 0 {
		t.Fatalf("expected no dispatches for unroutable partner")
	}

	// Unroutable items do not fail the run; the invoice still closes.
	var invoice invoicedomain.Invoice
	if err := env.db.Raw(`SELECT * FROM invoices WHERE id = 9000`).Scan(&invoice).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if invoice.Status != invoicedomain.InvoiceStatusCompleted {
		t.Fatalf("expected invoice completed, got %s", invoice.Status)
	}
}

func TestDispatchRepeatRunConverges(t *testing.T) {
	env := newDispatcherEnv(t)
	env.seedInvoice(t, 9000, invoicedomain.InvoiceStatusPending)
	env.seedPartner(t, 200, strptr("acct_1"), nil)
	env.seedPayout(t, 5000, 200, 9000, 12500)

	trigger := domain.Notification{InvoiceID: 9000, ChargeID: "ch_123"}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if err := env.svc.Dispatch(context.Background(), trigger); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}

	if len(env.transfers.created) != 1 {
		t.Fatalf("expected redelivery to be a no-op, got %d transfers", len(env.transfers.created))
	}

	var completed payoutdomain.Payout
	if err := env.db.Raw(`SELECT * FROM payouts WHERE id = 5000`).Scan(&completed).Error; err != nil {
		t.Fatalf("load payout: %v", err)
	}
	if completed.Status != payoutdomain.PayoutStatusCompleted {
		t.Fatalf("expected payout completed, got %s", completed.Status)
	}
}
