package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM partners WHERE id = ? LIMIT 1`, id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, domain.ErrPartnerNotFound
	}
	return &partner, nil
}
