package repository

import (
	"context"

	"github.com/smallbiznis/expenso/internal/approver/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindQualifiedApprover(ctx context.Context, db *gorm.DB, q domain.Query) (*domain.Candidate, error) {
	var candidate domain.Candidate

	stmt := db.WithContext(ctx).
		Table("users").
		Select("users.id, users.name, users.hierarchy_level_id, hierarchy_levels.level_number, hierarchy_levels.level_name").
		Joins("JOIN hierarchy_levels ON hierarchy_levels.id = users.hierarchy_level_id").
		Where("users.company_id = ?", q.CompanyID).
		Where("hierarchy_levels.level_number <= ?", q.RequiredLevel).
		Where("users.id <> ?", q.ExcludeUserID).
		Where("users.active = ?", true)
	if q.TeamID != 0 {
		stmt = stmt.Where("users.team_id = ?", q.TeamID)
	}

	err := stmt.
		Order("hierarchy_levels.level_number DESC").
		Limit(1).
		Scan(&candidate).Error
	if err != nil {
		return nil, err
	}
	if candidate.UserID == 0 {
		return nil, nil
	}
	return &candidate, nil
}
