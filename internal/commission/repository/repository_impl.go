package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM commissions WHERE id = ? LIMIT 1`, id,
	).Scan(&commission).Error
	if err != nil {
		return nil, err
	}
	if commission.ID == 0 {
		return nil, domain.ErrCommissionNotFound
	}
	return &commission, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, commission *domain.Commission) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commissions
		 SET amount = ?, earnings = ?, status = ?, payout_id = ?, updated_at = ?
		 WHERE id = ?`,
		commission.Amount,
		commission.Earnings,
		commission.Status,
		commission.PayoutID,
		commission.UpdatedAt,
		commission.ID,
	).Error
}
