package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	programdomain "github.com/smallbiznis/partnerpay/internal/program/domain"
	programrepository "github.com/smallbiznis/partnerpay/internal/program/repository"
	rewarddomain "github.com/smallbiznis/partnerpay/internal/reward/domain"
	rewardrepository "github.com/smallbiznis/partnerpay/internal/reward/repository"
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
		`CREATE TABLE program_enrollments (
			id INTEGER PRIMARY KEY,
			program_id INTEGER NOT NULL,
			partner_id INTEGER NOT NULL,
			group_id INTEGER,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME
		)`,
		`CREATE TABLE rewards (
			id INTEGER PRIMARY KEY,
			program_id INTEGER NOT NULL,
			group_id INTEGER,
			event TEXT NOT NULL,
			type TEXT NOT NULL,
			amount INTEGER NOT NULL,
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

func newTestService(gdb *gorm.DB) rewarddomain.Service {
	return NewService(Params{
		DB:          gdb,
		Log:         zap.NewNop(),
		Repo:        rewardrepository.Provide(),
		ProgramRepo: programrepository.Provide(),
	})
}

func TestResolvePrefersGroupReward(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	programID := snowflake.ID(100)
	partnerID := snowflake.ID(200)
	groupID := snowflake.ID(300)

	if err := gdb.Exec(`INSERT INTO program_enrollments (id, program_id, partner_id, group_id) VALUES (1, ?, ?, ?)`,
		programID, partnerID, groupID).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	if err := gdb.Exec(`INSERT INTO rewards (id, program_id, group_id, event, type, amount) VALUES
		(10, ?, NULL, 'sale', 'percentage', 10),
		(11, ?, ?, 'sale', 'percentage', 25)`,
		programID, programID, groupID).Error; err != nil {
		t.Fatalf("seed rewards: %v", err)
	}

	reward, err := newTestService(gdb).Resolve(ctx, programID, partnerID, rewarddomain.RewardEventSale)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reward.ID != 11 {
		t.Fatalf("expected group reward 11, got %d", reward.ID)
	}
	if reward.Amount != 25 {
		t.Fatalf("expected amount 25, got %d", reward.Amount)
	}
}

func TestResolveFallsBackToProgramDefault(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	programID := snowflake.ID(100)
	partnerID := snowflake.ID(200)
	groupID := snowflake.ID(300)

	if err := gdb.Exec(`INSERT INTO program_enrollments (id, program_id, partner_id, group_id) VALUES (1, ?, ?, ?)`,
		programID, partnerID, groupID).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	// Only the program default exists; nothing scoped to the group.
	if err := gdb.Exec(`INSERT INTO rewards (id, program_id, group_id, event, type, amount) VALUES (10, ?, NULL, 'sale', 'flat', 700)`,
		programID).Error; err != nil {
		t.Fatalf("seed rewards: %v", err)
	}

	reward, err := newTestService(gdb).Resolve(ctx, programID, partnerID, rewarddomain.RewardEventSale)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reward.ID != 10 {
		t.Fatalf("expected default reward 10, got %d", reward.ID)
	}
}

func TestResolveUngroupedEnrollment(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()

	programID := snowflake.ID(100)
	partnerID := snowflake.ID(200)

	if err := gdb.Exec(`INSERT INTO program_enrollments (id, program_id, partner_id, group_id) VALUES (1, ?, ?, NULL)`,
		programID, partnerID).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	if err := gdb.Exec(`INSERT INTO rewards (id, program_id, group_id, event, type, amount) VALUES
		(10, ?, NULL, 'lead', 'flat', 300),
		(11, ?, 999, 'lead', 'flat', 900)`,
		programID, programID).Error; err != nil {
		t.Fatalf("seed rewards: %v", err)
	}

	reward, err := newTestService(gdb).Resolve(ctx, programID, partnerID, rewarddomain.RewardEventLead)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reward.ID != 10 {
		t.Fatalf("expected ungrouped reward 10, got %d", reward.ID)
	}
}

func TestResolveMissingEnrollment(t *testing.T) {
	gdb := openTestDB(t)

	_, err := newTestService(gdb).Resolve(context.Background(), 100, 200, rewarddomain.RewardEventSale)
	if !errors.Is(err, programdomain.ErrEnrollmentNotFound) {
		t.Fatalf("expected enrollment_not_found, got %v", err)
	}
}

func TestResolveMissingReward(t *testing.T) {
	gdb := openTestDB(t)

	if err := gdb.Exec(`INSERT INTO program_enrollments (id, program_id, partner_id, group_id) VALUES (1, 100, 200, NULL)`).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	_, err := newTestService(gdb).Resolve(context.Background(), 100, 200, rewarddomain.RewardEventClick)
	if !errors.Is(err, rewarddomain.ErrRewardNotFound) {
		t.Fatalf("expected reward_not_found, got %v", err)
	}
}
