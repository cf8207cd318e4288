package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindPolicyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Policy, error)
	ListStepsByPolicy(ctx context.Context, db *gorm.DB, policyID snowflake.ID) ([]ApprovalStep, error)
}

var (
	ErrPolicyNotFound  = errors.New("policy_not_found")
	ErrNoApprovalSteps = errors.New("no_approval_steps")
)
