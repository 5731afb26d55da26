package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/reward/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// FindForGroup prefers the group-specific reward and falls back to the
// program default (group_id IS NULL) in a single query.
func (r *repo) FindForGroup(ctx context.Context, db *gorm.DB, programID snowflake.ID, groupID *snowflake.ID, event domain.RewardEvent) (*domain.Reward, error) {
	var reward domain.Reward
	var err error
	if groupID != nil {
		err = db.WithContext(ctx).Raw(
			`SELECT * FROM rewards
			 WHERE program_id = ? AND event = ? AND (group_id = ? OR group_id IS NULL)
			 ORDER BY CASE WHEN group_id IS NULL THEN 1 ELSE 0 END
			 LIMIT 1`,
			programID, event, *groupID,
		).Scan(&reward).Error
	} else {
		err = db.WithContext(ctx).Raw(
			`SELECT * FROM rewards
			 WHERE program_id = ? AND event = ? AND group_id IS NULL
			 LIMIT 1`,
			programID, event,
		).Scan(&reward).Error
	}
	if err != nil {
		return nil, err
	}
	if reward.ID == 0 {
		return nil, domain.ErrRewardNotFound
	}
	return &reward, nil
}
