package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expenso/internal/policy/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindPolicyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Policy, error) {
	var policy domain.Policy
	err := db.WithContext(ctx).Raw(
		`SELECT id, company_id, category, name, description, min_amount, max_amount, active, created_at
		 FROM policies WHERE id = ?`,
		id,
	).Scan(&policy).Error
	if err != nil {
		return nil, err
	}
	if policy.ID == 0 {
		return nil, nil
	}
	return &policy, nil
}

func (r *repo) ListStepsByPolicy(ctx context.Context, db *gorm.DB, policyID snowflake.ID) ([]domain.ApprovalStep, error) {
	var steps []domain.ApprovalStep
	err := db.WithContext(ctx).Raw(
		`SELECT id, policy_id, step_order, required_level, team_scope, is_required, description
		 FROM approval_steps WHERE policy_id = ?
		 ORDER BY step_order ASC`,
		policyID,
	).Scan(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}
