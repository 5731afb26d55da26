package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/partnerpay/internal/audit/domain"
	auditrepository "github.com/smallbiznis/partnerpay/internal/audit/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

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

	err = gdb.Exec(`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT,
		ip TEXT,
		user_agent TEXT,
		created_at DATETIME
	)`).Error
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T, gdb *gorm.DB) auditdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewService(Params{
		DB:    gdb,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
}

func TestRecordPersistsEntry(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	targetID := "12345"
	err := svc.Record(context.Background(), "system", nil, "commission.updated", "commission", &targetID, map[string]any{
		"amount_before": int64(10000),
		"amount_after":  int64(20000),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var entry auditdomain.AuditLog
	if err := gdb.Raw(`SELECT * FROM audit_logs LIMIT 1`).Scan(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.Action != "commission.updated" {
		t.Fatalf("expected action commission.updated, got %s", entry.Action)
	}
	if entry.TargetID == nil || *entry.TargetID != "12345" {
		t.Fatalf("expected target id 12345")
	}
}

func TestRecordRejectsEmptyAction(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	err := svc.Record(context.Background(), "system", nil, "  ", "commission", nil, nil)
	if !errors.Is(err, auditdomain.ErrInvalidAction) {
		t.Fatalf("expected invalid_action, got %v", err)
	}
}

func TestRecordDefaultsActorType(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	if err := svc.Record(context.Background(), "", nil, "payout.reconciled", "", nil, nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	var entry auditdomain.AuditLog
	if err := gdb.Raw(`SELECT * FROM audit_logs LIMIT 1`).Scan(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.ActorType != string(auditdomain.ActorTypeSystem) {
		t.Fatalf("expected actor_type system, got %s", entry.ActorType)
	}
	if entry.TargetType != "unknown" {
		t.Fatalf("expected target_type unknown, got %s", entry.TargetType)
	}
}

func TestRecordMasksSecrets(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	err := svc.Record(context.Background(), "user", nil, "settings.updated", "program", nil, map[string]any{
		"secrets": map[string]any{
			"webhook_secret": "whsec_abcdef123456",
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var entry auditdomain.AuditLog
	if err := gdb.Raw(`SELECT * FROM audit_logs LIMIT 1`).Scan(&entry).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	secrets, ok := entry.Metadata["secrets"].(map[string]any)
	if !ok {
		t.Fatalf("expected secrets map, got %T", entry.Metadata["secrets"])
	}
	masked, _ := secrets["webhook_secret"].(string)
	if strings.Contains(masked, "abcdef123456") {
		t.Fatalf("expected secret masked, got %s", masked)
	}
	if !strings.Contains(masked, "****") {
		t.Fatalf("expected mask token, got %s", masked)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := gdb.Exec(
			`INSERT INTO audit_logs (id, actor_type, action, target_type, target_id, created_at)
			 VALUES (?, 'system', 'commission.updated', 'commission', ?, ?)`,
			i+1, fmt.Sprintf("%d", i+1), base.Add(time.Duration(i)*time.Minute),
		).Error
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := gdb.Exec(
		`INSERT INTO audit_logs (id, actor_type, action, target_type, created_at)
		 VALUES (100, 'system', 'payout.reconciled', 'payout', ?)`, base,
	).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := auditdomain.ListAuditLogRequest{Action: "commission.updated"}
	req.PageSize = 2
	resp, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.AuditLogs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(resp.AuditLogs))
	}
	if !resp.HasMore {
		t.Fatalf("expected more pages")
	}
	// Newest first.
	if resp.AuditLogs[0].ID != 5 {
		t.Fatalf("expected newest entry first, got %v", resp.AuditLogs[0].ID)
	}

	next := auditdomain.ListAuditLogRequest{Action: "commission.updated"}
	next.PageSize = 2
	next.PageToken = resp.NextPageToken
	page2, err := svc.List(context.Background(), next)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2.AuditLogs) != 2 {
		t.Fatalf("expected 2 logs on page 2, got %d", len(page2.AuditLogs))
	}
	if page2.AuditLogs[0].ID >= resp.AuditLogs[1].ID {
		t.Fatalf("expected page 2 to continue past page 1")
	}
}

func TestListRejectsInvalidTimeRange(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	if !errors.Is(err, auditdomain.ErrInvalidTimeRange) {
		t.Fatalf("expected invalid_time_range, got %v", err)
	}
}

func TestListRejectsBadPageToken(t *testing.T) {
	gdb := openTestDB(t)
	svc := newTestService(t, gdb)

	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-base64!"
	_, err := svc.List(context.Background(), req)
	if !errors.Is(err, auditdomain.ErrInvalidPageToken) {
		t.Fatalf("expected invalid_page_token, got %v", err)
	}
}
