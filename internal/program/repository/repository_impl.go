package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerpay/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProgram(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM programs WHERE id = ? LIMIT 1`, id,
	).Scan(&program).Error
	if err != nil {
		return nil, err
	}
	if program.ID == 0 {
		return nil, domain.ErrProgramNotFound
	}
	return &program, nil
}

func (r *repo) FindEnrollment(ctx context.Context, db *gorm.DB, programID, partnerID snowflake.ID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM program_enrollments WHERE program_id = ? AND partner_id = ? LIMIT 1`,
		programID, partnerID,
	).Scan(&enrollment).Error
	if err != nil {
		return nil, err
	}
	if enrollment.ID == 0 {
		return nil, domain.ErrEnrollmentNotFound
	}
	return &enrollment, nil
}
