package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/partnerpay/internal/audit/domain"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/config"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	"github.com/smallbiznis/partnerpay/internal/settlement"
	settlementdomain "github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	db            *gorm.DB
	genID         *snowflake.Node
	commissionSvc commissiondomain.Service
	payoutRepo    payoutdomain.Repository
	auditSvc      auditdomain.Service
	dispatcher    settlementdomain.Dispatcher
	verifier      *settlement.Verifier
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	DB            *gorm.DB
	GenID         *snowflake.Node
	CommissionSvc commissiondomain.Service
	PayoutRepo    payoutdomain.Repository
	AuditSvc      auditdomain.Service
	Dispatcher    settlementdomain.Dispatcher
	Verifier      *settlement.Verifier
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		db:            p.DB,
		genID:         p.GenID,
		commissionSvc: p.CommissionSvc,
		payoutRepo:    p.PayoutRepo,
		auditSvc:      p.AuditSvc,
		dispatcher:    p.Dispatcher,
		verifier:      p.Verifier,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.GET("/commissions/:id", s.GetCommission)
	api.PATCH("/commissions/:id", s.UpdateCommission)
	api.GET("/payouts/:id", s.GetPayout)
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/settlement", s.HandleSettlementWebhook)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)
