package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/smallbiznis/partnerpay/internal/program/domain"
	rewarddomain "github.com/smallbiznis/partnerpay/internal/reward/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        rewarddomain.Repository
	ProgramRepo programdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        rewarddomain.Repository
	programRepo programdomain.Repository
}

func NewService(p Params) rewarddomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reward.service"),
		repo:        p.Repo,
		programRepo: p.ProgramRepo,
	}
}

// Resolve loads the partner's enrollment and returns the reward that applies
// to it for the given event.
func (s *Service) Resolve(ctx context.Context, programID, partnerID snowflake.ID, event rewarddomain.RewardEvent) (*rewarddomain.Reward, error) {
	enrollment, err := s.programRepo.FindEnrollment(ctx, s.db, programID, partnerID)
	if err != nil {
		return nil, err
	}
	return s.repo.FindForGroup(ctx, s.db, programID, enrollment.GroupID, event)
}
