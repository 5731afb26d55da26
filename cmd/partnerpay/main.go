package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/audit"
	"github.com/smallbiznis/partnerpay/internal/clock"
	"github.com/smallbiznis/partnerpay/internal/commission"
	"github.com/smallbiznis/partnerpay/internal/config"
	"github.com/smallbiznis/partnerpay/internal/events"
	"github.com/smallbiznis/partnerpay/internal/fxrate"
	"github.com/smallbiznis/partnerpay/internal/invoice"
	"github.com/smallbiznis/partnerpay/internal/locks"
	"github.com/smallbiznis/partnerpay/internal/logger"
	"github.com/smallbiznis/partnerpay/internal/metrics"
	"github.com/smallbiznis/partnerpay/internal/migration"
	"github.com/smallbiznis/partnerpay/internal/notification"
	"github.com/smallbiznis/partnerpay/internal/partner"
	"github.com/smallbiznis/partnerpay/internal/payout"
	"github.com/smallbiznis/partnerpay/internal/program"
	"github.com/smallbiznis/partnerpay/internal/reward"
	"github.com/smallbiznis/partnerpay/internal/scheduler"
	"github.com/smallbiznis/partnerpay/internal/server"
	"github.com/smallbiznis/partnerpay/internal/settlement"
	"github.com/smallbiznis/partnerpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		metrics.Module,
		locks.Module,
		events.Module,

		// Functional domains
		partner.Module,
		program.Module,
		reward.Module,
		fxrate.Module,
		commission.Module,
		invoice.Module,
		payout.Module,
		notification.Module,
		settlement.Module,
		scheduler.Module,
		audit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
